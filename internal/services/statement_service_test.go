package services

import (
	"context"
	"errors"
	"testing"

	"comptes/internal/core"
	"comptes/internal/ingest"
)

type fakeArchive struct {
	saved  []ingest.Result
	failed bool
}

func (f *fakeArchive) SaveBatch(_ context.Context, batch ingest.Result) error {
	if f.failed {
		return errors.New("disk full")
	}
	f.saved = append(f.saved, batch)
	return nil
}

func (f *fakeArchive) LoadBatch(_ context.Context, batchID string) ([]core.Transaction, error) {
	for _, batch := range f.saved {
		if batch.BatchID == batchID {
			return batch.Transactions, nil
		}
	}
	return nil, errors.New("batch not found")
}

type fakePublisher struct {
	published []string
	failed    bool
}

func (f *fakePublisher) PublishBatchSync(_ context.Context, batchID string, _ int) error {
	if f.failed {
		return errors.New("broker unreachable")
	}
	f.published = append(f.published, batchID)
	return nil
}

func sampleRows() []ingest.RawRow {
	return []ingest.RawRow{
		{"dateOp": "15/01/2024", "label": "Carrefour", "amount": "-41,80", "accountNum": "1"},
		{"dateOp": "20/01/2024", "label": "Salaire", "amount": "2 500,00", "accountNum": "1"},
	}
}

func TestProcessArchivesAndPublishes(t *testing.T) {
	archive := &fakeArchive{}
	publisher := &fakePublisher{}
	service := NewStatementService(archive, publisher)

	result := service.Process(context.Background(), sampleRows())

	if len(result.Transactions) != 2 {
		t.Fatalf("retained %d transactions, want 2", len(result.Transactions))
	}
	if len(archive.saved) != 1 || archive.saved[0].BatchID != result.BatchID {
		t.Errorf("archive = %v", archive.saved)
	}
	if len(publisher.published) != 1 || publisher.published[0] != result.BatchID {
		t.Errorf("published = %v", publisher.published)
	}

	loaded, err := service.LoadBatch(context.Background(), result.BatchID)
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(loaded) != 2 {
		t.Errorf("loaded %d transactions, want 2", len(loaded))
	}
}

func TestProcessToleratesArchiveFailure(t *testing.T) {
	archive := &fakeArchive{failed: true}
	publisher := &fakePublisher{}
	service := NewStatementService(archive, publisher)

	result := service.Process(context.Background(), sampleRows())

	if len(result.Transactions) != 2 {
		t.Errorf("ingestion result must survive an archive failure, got %d", len(result.Transactions))
	}
	if len(publisher.published) != 0 {
		t.Error("an unarchived batch must not be published")
	}
}

func TestProcessToleratesPublishFailure(t *testing.T) {
	archive := &fakeArchive{}
	publisher := &fakePublisher{failed: true}
	service := NewStatementService(archive, publisher)

	result := service.Process(context.Background(), sampleRows())

	if len(result.Transactions) != 2 {
		t.Errorf("ingestion result must survive a publish failure, got %d", len(result.Transactions))
	}
	if len(archive.saved) != 1 {
		t.Error("batch should still be archived when publish fails")
	}
}

func TestProcessWithoutCollaborators(t *testing.T) {
	service := NewStatementService(nil, nil)

	result := service.Process(context.Background(), sampleRows())
	if len(result.Transactions) != 2 {
		t.Errorf("in-memory processing should work without archive or broker, got %d", len(result.Transactions))
	}

	if _, err := service.LoadBatch(context.Background(), result.BatchID); err == nil {
		t.Error("LoadBatch without an archive should error")
	}
}
