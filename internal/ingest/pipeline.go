// Package ingest turns raw statement rows into normalized transactions.
//
// Rows are processed independently: a malformed scalar field falls back to
// its documented default, a row that panics while being built is recorded as
// a RowError, and duplicates (same identity key) are dropped first-occurrence
// wins. Only a structurally unreadable input stream aborts a batch.
package ingest

import (
	"fmt"

	"github.com/google/uuid"

	"comptes/internal/core"
)

// RawRow is one tabular source row. Absent columns are absent keys.
type RawRow map[string]string

// RowError records a row that could not be turned into a transaction.
type RowError struct {
	Row RawRow `json:"row"`
	Err string `json:"error"`
}

// Result is the outcome of processing one batch of rows.
type Result struct {
	BatchID           string             `json:"batchId"`
	Transactions      []core.Transaction `json:"transactions"`
	TotalProcessed    int                `json:"totalProcessed"`
	DuplicatesSkipped int                `json:"duplicatesSkipped"`
	Errors            []RowError         `json:"processingErrors,omitempty"`
}

// Pipeline builds, deduplicates and collects transactions from raw rows.
type Pipeline struct{}

func NewPipeline() *Pipeline {
	return &Pipeline{}
}

// Process runs every row through the locale parsers, keeps the first
// occurrence of each identity key and reports per-row failures without
// aborting the batch. Retained order is input order.
func (p *Pipeline) Process(rows []RawRow) Result {
	result := Result{
		BatchID:      uuid.NewString(),
		Transactions: make([]core.Transaction, 0, len(rows)),
	}
	seen := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		tx, err := buildRow(row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: row, Err: err.Error()})
			continue
		}
		key := tx.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result.Transactions = append(result.Transactions, tx)
	}

	result.TotalProcessed = len(rows)
	result.DuplicatesSkipped = len(rows) - len(result.Transactions) - len(result.Errors)
	return result
}

// buildRow converts one raw row, translating a panic into the row's error.
func buildRow(row RawRow) (tx core.Transaction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row processing failed: %v", r)
		}
	}()

	tx = core.Transaction{
		DateOp:         core.ParseDate(row["dateOp"]),
		DateVal:        core.ParseDate(row["dateVal"]),
		Label:          row["label"],
		Category:       row["category"],
		CategoryParent: row["categoryParent"],
		Amount:         core.ParseAmount(row["amount"]),
		Comment:        row["comment"],
		AccountNum:     row["accountNum"],
		AccountLabel:   core.ParseAccountLabel(row["accountLabel"]),
	}
	if tx.CategoryParent == "" {
		tx.CategoryParent = core.CategoryUncategorized
	}
	if supplier, ok := row["supplierFound"]; ok && supplier != "" {
		tx.Supplier = &supplier
	}
	if raw, ok := row["accountbalance"]; ok && raw != "" {
		balance := core.ParseAmount(raw)
		tx.AccountBalance = &balance
	}
	return tx, nil
}
