// Package export defines the outbound report port used by the worker.
package export

import (
	"context"

	"comptes/internal/aggregate"
	"comptes/internal/core"
)

// ReportWriter receives one archived batch and its summary.
type ReportWriter interface {
	// WriteBatchReport appends the batch's transactions and a summary block,
	// returning a reference to the written range.
	WriteBatchReport(ctx context.Context, batchID string, txs []core.Transaction, summary aggregate.Summary) (ref string, err error)
}
