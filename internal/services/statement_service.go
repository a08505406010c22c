// Package services orchestrates ingestion across storage and AMQP.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"comptes/internal/core"
	"comptes/internal/ingest"
)

// BatchArchive persists ingested batches for the export worker and for
// cache misses on the HTTP side.
type BatchArchive interface {
	SaveBatch(ctx context.Context, batch ingest.Result) error
	LoadBatch(ctx context.Context, batchID string) ([]core.Transaction, error)
}

// BatchPublisher notifies the export worker that a batch is archived.
type BatchPublisher interface {
	PublishBatchSync(ctx context.Context, batchID string, rows int) error
}

// StatementService runs the ingestion pipeline, archives the result and
// publishes a sync message. Archive and publish failures are logged but do
// not fail the ingestion; the caller still receives the full result.
type StatementService struct {
	pipeline  *ingest.Pipeline
	archive   BatchArchive
	publisher BatchPublisher
}

func NewStatementService(archive BatchArchive, publisher BatchPublisher) *StatementService {
	return &StatementService{
		pipeline:  ingest.NewPipeline(),
		archive:   archive,
		publisher: publisher,
	}
}

// Process ingests one batch of raw rows.
func (s *StatementService) Process(ctx context.Context, rows []ingest.RawRow) ingest.Result {
	result := s.pipeline.Process(rows)

	archived := false
	if s.archive != nil {
		if err := s.archive.SaveBatch(ctx, result); err != nil {
			slog.ErrorContext(ctx, "Failed to archive batch",
				"batch_id", result.BatchID, "error", err)
		} else {
			archived = true
		}
	}

	// the worker loads the batch from the archive, so only publish what it
	// will be able to find
	if archived && s.publisher != nil {
		if err := s.publisher.PublishBatchSync(ctx, result.BatchID, len(result.Transactions)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish batch sync message",
				"batch_id", result.BatchID, "error", err)
		}
	}

	return result
}

// LoadBatch reads an archived batch, for cache misses on the HTTP side.
func (s *StatementService) LoadBatch(ctx context.Context, batchID string) ([]core.Transaction, error) {
	if s.archive == nil {
		return nil, fmt.Errorf("no batch archive configured")
	}
	return s.archive.LoadBatch(ctx, batchID)
}
