package amqp

import (
	"encoding/json"
	"time"
)

// BatchSyncMessage is a lightweight message asking the export worker to pick
// up one archived batch. It carries only the batch id and row count; the
// worker loads the full batch from storage.
type BatchSyncMessage struct {
	BatchID   string    `json:"batchId"`
	Rows      int       `json:"rows"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBatchSyncMessage creates a new sync message for one batch
func NewBatchSyncMessage(batchID string, rows int) *BatchSyncMessage {
	return &BatchSyncMessage{
		BatchID:   batchID,
		Rows:      rows,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BatchSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BatchSyncMessageFromJSON creates a message from JSON bytes
func BatchSyncMessageFromJSON(data []byte) (*BatchSyncMessage, error) {
	var msg BatchSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
