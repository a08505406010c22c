// Package google exports batch reports to a Google Sheets spreadsheet using
// service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"comptes/internal/aggregate"
	"comptes/internal/core"
	ports "comptes/internal/export"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.ReportWriter = (*Client)(nil)

// NewFromEnv creates a Sheets client from environment variables.
// Required: GOOGLE_SPREADSHEET_ID and either GOOGLE_CREDENTIALS_JSON or
// GOOGLE_CREDENTIALS_FILE. Optional: GOOGLE_SHEET_NAME (default "Transactions").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using service-account
// credentials from GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credentialsJSON := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_JSON"))
	credentialsFile := strings.TrimSpace(os.Getenv("GOOGLE_CREDENTIALS_FILE"))
	if credentialsJSON == "" && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentials []byte
	switch {
	case credentialsJSON != "":
		credentials = []byte(credentialsJSON)
	case credentialsFile != "":
		var err error
		credentials, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read credentials file: %w", err)
		}
	default:
		return nil, errors.New("missing credentials (set GOOGLE_CREDENTIALS_JSON, GOOGLE_CREDENTIALS_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created")
	return service, nil
}

// WriteBatchReport appends the batch's transactions followed by a summary
// block to the configured sheet.
func (c *Client) WriteBatchReport(ctx context.Context, batchID string, txs []core.Transaction, summary aggregate.Summary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	values := make([][]any, 0, len(txs)+6)
	values = append(values, []any{
		"Batch", batchID, "", "", "", "", "", "",
	})
	values = append(values, []any{
		"Date", "Date valeur", "Libellé", "Catégorie", "Fournisseur", "Montant", "Compte", "Commentaire",
	})
	for _, t := range txs {
		supplier := ""
		if t.Supplier != nil {
			supplier = *t.Supplier
		}
		amount, _ := t.Amount.Float64()
		values = append(values, []any{
			t.DateOp, t.DateVal, t.Label, t.CategoryParent, supplier, amount, string(t.AccountLabel), t.Comment,
		})
	}

	expenses, _ := summary.Totals.Expenses.Float64()
	income, _ := summary.Totals.Income.Float64()
	net, _ := summary.Totals.Net.Float64()
	essential, _ := summary.Essentials.Essential.Float64()
	nonEssential, _ := summary.Essentials.NonEssential.Float64()
	values = append(values,
		[]any{"Total dépenses", expenses},
		[]any{"Total revenus", income},
		[]any{"Solde", net},
		[]any{"Dépenses essentielles", essential},
		[]any{"Dépenses non essentielles", nonEssential},
	)

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng,
		&gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append batch report to %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Batch report written to Google Sheets",
		"batch_id", batchID,
		"rows", len(txs),
		"sheets_ref", ref)
	return ref, nil
}
