package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"comptes/internal/annotations"
	"comptes/internal/core"
	"comptes/internal/ingest"

	_ "modernc.org/sqlite"
)

// ErrBatchNotFound is returned when a batch id has no archived rows.
var ErrBatchNotFound = errors.New("batch not found")

// SQLiteRepository archives ingested batches and persists annotations and
// essential-category overrides.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveBatch archives a batch and its retained transactions atomically.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, batch ingest.Result) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, total_processed, duplicates_skipped, row_errors)
		 VALUES (?, ?, ?, ?)`,
		batch.BatchID, batch.TotalProcessed, batch.DuplicatesSkipped, len(batch.Errors))
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions (
		   batch_id, position, date_op, date_val, label, category, category_parent,
		   supplier, amount, comment, account_num, account_label, account_balance
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer stmt.Close()

	for i, t := range batch.Transactions {
		var balance sql.NullString
		if t.AccountBalance != nil {
			balance = sql.NullString{String: t.AccountBalance.String(), Valid: true}
		}
		var supplier sql.NullString
		if t.Supplier != nil {
			supplier = sql.NullString{String: *t.Supplier, Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			batch.BatchID, i, t.DateOp, t.DateVal, t.Label, t.Category, t.CategoryParent,
			supplier, t.Amount.String(), t.Comment, t.AccountNum, string(t.AccountLabel), balance)
		if err != nil {
			return fmt.Errorf("insert transaction %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Batch archived to SQLite",
		"batch_id", batch.BatchID,
		"retained", len(batch.Transactions),
		"duplicates", batch.DuplicatesSkipped,
		"row_errors", len(batch.Errors))
	return nil
}

// LoadBatch returns the archived transactions of one batch in ingestion order.
func (r *SQLiteRepository) LoadBatch(ctx context.Context, batchID string) ([]core.Transaction, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM batches WHERE id = ?`, batchID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check batch: %w", err)
	}
	if exists == 0 {
		return nil, ErrBatchNotFound
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT date_op, date_val, label, category, category_parent,
		        supplier, amount, comment, account_num, account_label, account_balance
		 FROM transactions WHERE batch_id = ? ORDER BY position`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query batch transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			t              core.Transaction
			supplier       sql.NullString
			amount         string
			accountLabel   string
			accountBalance sql.NullString
		)
		err := rows.Scan(&t.DateOp, &t.DateVal, &t.Label, &t.Category, &t.CategoryParent,
			&supplier, &amount, &t.Comment, &t.AccountNum, &accountLabel, &accountBalance)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		if supplier.Valid {
			s := supplier.String
			t.Supplier = &s
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		t.AccountLabel = core.AccountLabel(accountLabel)
		if accountBalance.Valid {
			b, err := decimal.NewFromString(accountBalance.String)
			if err != nil {
				return nil, fmt.Errorf("parse stored balance %q: %w", accountBalance.String, err)
			}
			t.AccountBalance = &b
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch transactions: %w", err)
	}
	return txs, nil
}

// Get implements annotations.Store
func (r *SQLiteRepository) Get(ctx context.Context, key string) (annotations.Annotation, bool, error) {
	var (
		ann     annotations.Annotation
		flagged int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT flagged, note FROM annotations WHERE key = ?`, key).Scan(&flagged, &ann.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return annotations.Annotation{}, false, nil
	}
	if err != nil {
		return annotations.Annotation{}, false, fmt.Errorf("get annotation: %w", err)
	}
	ann.Flagged = flagged != 0
	return ann, true, nil
}

// Upsert implements annotations.Store
func (r *SQLiteRepository) Upsert(ctx context.Context, key string, patch annotations.Patch) (annotations.Annotation, error) {
	ann, _, err := r.Get(ctx, key)
	if err != nil {
		return annotations.Annotation{}, err
	}
	if patch.Flagged != nil {
		ann.Flagged = *patch.Flagged
	}
	if patch.Note != nil {
		ann.Note = *patch.Note
	}

	flagged := 0
	if ann.Flagged {
		flagged = 1
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO annotations (key, flagged, note, updated_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET
		   flagged = excluded.flagged,
		   note = excluded.note,
		   updated_at = CURRENT_TIMESTAMP`,
		key, flagged, ann.Note)
	if err != nil {
		return annotations.Annotation{}, fmt.Errorf("upsert annotation: %w", err)
	}
	return ann, nil
}

// List implements categories.Overrides
func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category_parent FROM essential_overrides ORDER BY category_parent`)
	if err != nil {
		return nil, fmt.Errorf("list essential overrides: %w", err)
	}
	defer rows.Close()

	var custom []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan essential override: %w", err)
		}
		custom = append(custom, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate essential overrides: %w", err)
	}
	return custom, nil
}

// Set implements categories.Overrides
func (r *SQLiteRepository) Set(ctx context.Context, custom []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM essential_overrides`); err != nil {
		return fmt.Errorf("clear essential overrides: %w", err)
	}
	for _, c := range custom {
		if c == "" {
			continue
		}
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO essential_overrides (category_parent) VALUES (?)`, c)
		if err != nil {
			return fmt.Errorf("insert essential override: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit essential overrides: %w", err)
	}
	return nil
}
