// Package worker consumes batch sync messages and exports archived batches.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"comptes/internal/aggregate"
	"comptes/internal/amqp"
	"comptes/internal/categories"
	"comptes/internal/core"
	"comptes/internal/export"
)

// BatchLoader reads an archived batch.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batchID string) ([]core.Transaction, error)
}

// ExportWorker turns one batch sync message into a written report: it loads
// the archived batch, computes its summary and hands both to the writer.
type ExportWorker struct {
	loader    BatchLoader
	writer    export.ReportWriter
	overrides categories.Overrides
}

func NewExportWorker(loader BatchLoader, writer export.ReportWriter, overrides categories.Overrides) *ExportWorker {
	return &ExportWorker{
		loader:    loader,
		writer:    writer,
		overrides: overrides,
	}
}

// HandleBatchMessage processes a single batch sync message from AMQP.
func (w *ExportWorker) HandleBatchMessage(ctx context.Context, msg *amqp.BatchSyncMessage) error {
	slog.InfoContext(ctx, "Processing batch sync message",
		"batch_id", msg.BatchID,
		"rows", msg.Rows)

	txs, err := w.loader.LoadBatch(ctx, msg.BatchID)
	if err != nil {
		return fmt.Errorf("load batch from storage: %w", err)
	}

	essentials, err := categories.Load(ctx, w.overrides)
	if err != nil {
		return fmt.Errorf("load essential categories: %w", err)
	}

	summary := aggregate.Compute(txs, essentials.IsEssential)

	ref, err := w.writer.WriteBatchReport(ctx, msg.BatchID, txs, summary)
	if err != nil {
		return fmt.Errorf("write batch report: %w", err)
	}

	slog.InfoContext(ctx, "Batch exported",
		"batch_id", msg.BatchID,
		"rows", len(txs),
		"sheets_ref", ref)
	return nil
}
