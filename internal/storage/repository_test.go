package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"comptes/internal/annotations"
	"comptes/internal/core"
	"comptes/internal/ingest"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "comptes.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndLoadBatch(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	supplier := "Carrefour SA"
	balance := decimal.RequireFromString("5926.24")
	batch := ingest.Result{
		BatchID: "batch-1",
		Transactions: []core.Transaction{
			{
				DateOp: "2024-01-15", DateVal: "2024-01-16",
				Label: "Carrefour", Category: "Supermarché", CategoryParent: "Alimentation",
				Supplier: &supplier, Amount: decimal.RequireFromString("-41.8"),
				Comment: "courses", AccountNum: "123",
				AccountLabel: core.AccountPrimary, AccountBalance: &balance,
			},
			{
				DateOp: "2024-01-20", Label: "Salaire", CategoryParent: "Revenus",
				Amount:     decimal.RequireFromString("2500"),
				AccountNum: "123", AccountLabel: core.AccountJoint,
			},
		},
		TotalProcessed:    3,
		DuplicatesSkipped: 1,
	}

	if err := repo.SaveBatch(ctx, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	txs, err := repo.LoadBatch(ctx, "batch-1")
	if err != nil {
		t.Fatalf("LoadBatch: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txs))
	}

	got := txs[0]
	if got.Label != "Carrefour" || got.DateOp != "2024-01-15" {
		t.Errorf("first transaction = %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("-41.8")) {
		t.Errorf("amount round-trip = %s", got.Amount)
	}
	if got.Supplier == nil || *got.Supplier != "Carrefour SA" {
		t.Errorf("supplier = %v", got.Supplier)
	}
	if got.AccountBalance == nil || !got.AccountBalance.Equal(balance) {
		t.Errorf("balance = %v", got.AccountBalance)
	}
	if got.Key() != batch.Transactions[0].Key() {
		t.Error("identity key must survive the archive round-trip")
	}

	if txs[1].Supplier != nil || txs[1].AccountBalance != nil {
		t.Error("absent optionals must stay nil after load")
	}
	if txs[1].AccountLabel != core.AccountJoint {
		t.Errorf("accountLabel = %q", txs[1].AccountLabel)
	}
}

func TestLoadBatchNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.LoadBatch(context.Background(), "unknown")
	if !errors.Is(err, ErrBatchNotFound) {
		t.Errorf("err = %v, want ErrBatchNotFound", err)
	}
}

func TestAnnotationsRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get on empty store: ok=%v err=%v", ok, err)
	}

	flagged := true
	if _, err := repo.Upsert(ctx, "k", annotations.Patch{Flagged: &flagged}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	note := "à vérifier"
	ann, err := repo.Upsert(ctx, "k", annotations.Patch{Note: &note})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !ann.Flagged || ann.Note != "à vérifier" {
		t.Errorf("merged annotation = %+v", ann)
	}

	stored, ok, err := repo.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if stored != ann {
		t.Errorf("stored = %+v, want %+v", stored, ann)
	}
}

func TestEssentialOverridesRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	custom, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(custom) != 0 {
		t.Errorf("fresh store overrides = %v", custom)
	}

	if err := repo.Set(ctx, []string{"Éducation", "Abonnements", ""}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	custom, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(custom) != 2 {
		t.Fatalf("overrides = %v, want two entries", custom)
	}

	if err := repo.Set(ctx, []string{"Abonnements"}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	custom, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(custom) != 1 || custom[0] != "Abonnements" {
		t.Errorf("overrides after replace = %v", custom)
	}
}
