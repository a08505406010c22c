// Package memory is an in-process ReportWriter used by the memory backend
// and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"comptes/internal/aggregate"
	"comptes/internal/core"
)

// Report is one written batch report.
type Report struct {
	BatchID      string
	Transactions []core.Transaction
	Summary      aggregate.Summary
}

type Writer struct {
	mu      sync.Mutex
	reports []Report
}

func New() *Writer {
	return &Writer{}
}

// WriteBatchReport stores the report and returns a synthetic reference.
func (w *Writer) WriteBatchReport(_ context.Context, batchID string, txs []core.Transaction, summary aggregate.Summary) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.reports = append(w.reports, Report{
		BatchID:      batchID,
		Transactions: append([]core.Transaction(nil), txs...),
		Summary:      summary,
	})
	return fmt.Sprintf("mem:%d", len(w.reports)), nil
}

// Reports returns a copy of everything written so far.
func (w *Writer) Reports() []Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Report(nil), w.reports...)
}
