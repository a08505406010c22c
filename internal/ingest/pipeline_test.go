package ingest

import (
	"strings"
	"testing"

	"comptes/internal/core"
)

func TestProcessNormalizesRows(t *testing.T) {
	pipeline := NewPipeline()

	result := pipeline.Process([]RawRow{
		{
			"dateOp":         "15/01/2024",
			"dateVal":        "16/01/2024",
			"label":          "Carrefour",
			"category":       "Supermarché",
			"categoryParent": "Alimentation",
			"supplierFound":  "Carrefour SA",
			"amount":         "-41,80",
			"comment":        "courses",
			"accountNum":     "00012345",
			"accountLabel":   "BoursoBank",
			"accountbalance": "5 926,24",
		},
		{
			"label":      "Sans date",
			"amount":     "abc",
			"accountNum": "00012345",
		},
	})

	if result.BatchID == "" {
		t.Error("expected a batch id")
	}
	if result.TotalProcessed != 2 || len(result.Transactions) != 2 {
		t.Fatalf("got %d processed / %d retained, want 2 / 2",
			result.TotalProcessed, len(result.Transactions))
	}

	tx := result.Transactions[0]
	if tx.DateOp != "2024-01-15" || tx.DateVal != "2024-01-16" {
		t.Errorf("dates = %q / %q", tx.DateOp, tx.DateVal)
	}
	if tx.Amount.String() != "-41.8" {
		t.Errorf("amount = %s, want -41.8", tx.Amount)
	}
	if tx.Supplier == nil || *tx.Supplier != "Carrefour SA" {
		t.Errorf("supplier = %v", tx.Supplier)
	}
	if tx.AccountBalance == nil || tx.AccountBalance.String() != "5926.24" {
		t.Errorf("balance = %v", tx.AccountBalance)
	}

	degraded := result.Transactions[1]
	if degraded.DateOp != "" {
		t.Errorf("missing date parsed to %q, want empty", degraded.DateOp)
	}
	if !degraded.Amount.IsZero() {
		t.Errorf("malformed amount = %s, want 0", degraded.Amount)
	}
	if degraded.CategoryParent != core.CategoryUncategorized {
		t.Errorf("categoryParent = %q, want %q", degraded.CategoryParent, core.CategoryUncategorized)
	}
	if degraded.Supplier != nil || degraded.AccountBalance != nil {
		t.Error("absent optional fields should stay nil")
	}
	if degraded.AccountLabel != core.AccountPrimary {
		t.Errorf("accountLabel = %q, want primary", degraded.AccountLabel)
	}
}

func TestProcessDeduplicatesFirstWins(t *testing.T) {
	pipeline := NewPipeline()

	dup := RawRow{
		"dateOp":     "15/01/2024",
		"label":      "Carrefour",
		"amount":     "-41,80",
		"accountNum": "123",
	}
	first := RawRow{
		"dateOp":     "15/01/2024",
		"label":      "Carrefour",
		"amount":     "-41,80",
		"accountNum": "123",
		"comment":    "premier",
	}

	result := pipeline.Process([]RawRow{first, dup, dup})

	if len(result.Transactions) != 1 {
		t.Fatalf("retained %d transactions, want 1", len(result.Transactions))
	}
	if result.DuplicatesSkipped != 2 {
		t.Errorf("duplicatesSkipped = %d, want 2", result.DuplicatesSkipped)
	}
	if result.Transactions[0].Comment != "premier" {
		t.Error("first occurrence should win")
	}
}

func TestProcessCountsConsistency(t *testing.T) {
	pipeline := NewPipeline()

	rows := []RawRow{
		{"dateOp": "01/02/2024", "label": "A", "amount": "-1,00", "accountNum": "1"},
		{"dateOp": "01/02/2024", "label": "A", "amount": "-1,00", "accountNum": "1"},
		{"dateOp": "02/02/2024", "label": "B", "amount": "10,00", "accountNum": "1"},
	}
	result := pipeline.Process(rows)

	got := len(result.Transactions) + result.DuplicatesSkipped + len(result.Errors)
	if got != result.TotalProcessed {
		t.Errorf("retained+skipped+errors = %d, want %d", got, result.TotalProcessed)
	}
}

func TestReadCSVSemicolon(t *testing.T) {
	input := "\ufeffdateOp;label;amount;accountNum;accountLabel\n" +
		"15/01/2024;Carrefour;-41,80;123;BoursoBank\n" +
		"16/01/2024;Salaire;2 500,00;123;BoursoBank\n"

	rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["dateOp"] != "15/01/2024" {
		t.Errorf("BOM not stripped from first column: %v", rows[0])
	}
	if rows[1]["amount"] != "2 500,00" {
		t.Errorf("amount = %q", rows[1]["amount"])
	}
}

func TestReadCSVComma(t *testing.T) {
	input := "dateOp,label,amount\n2024-01-15,Test,-5.00\n"

	rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if rows[0]["label"] != "Test" {
		t.Errorf("rows = %v", rows)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("")); err == nil {
		t.Error("expected an error for empty input")
	}
}

func TestReadCSVMissingColumnsYieldAbsentFields(t *testing.T) {
	input := "dateOp;label\n15/01/2024;Carrefour\n"

	rows, err := ReadCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if _, ok := rows[0]["amount"]; ok {
		t.Error("absent column must not appear in the row")
	}
}
