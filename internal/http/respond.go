package http

import (
	"encoding/json"
	"net/http"

	"comptes/internal/aggregate"
	"comptes/internal/core"
	"comptes/internal/filter"
	"comptes/internal/ingest"
)

// transactionDTO renders amounts as plain JSON numbers.
type transactionDTO struct {
	Key            string   `json:"key"`
	DateOp         string   `json:"dateOp"`
	DateVal        string   `json:"dateVal"`
	Label          string   `json:"label"`
	Category       string   `json:"category"`
	CategoryParent string   `json:"categoryParent"`
	Supplier       *string  `json:"supplierFound,omitempty"`
	Amount         float64  `json:"amount"`
	Comment        string   `json:"comment,omitempty"`
	AccountNum     string   `json:"accountNum"`
	AccountLabel   string   `json:"accountLabel"`
	AccountBalance *float64 `json:"accountbalance,omitempty"`
}

func toTransactionDTO(t core.Transaction) transactionDTO {
	dto := transactionDTO{
		Key:            t.Key(),
		DateOp:         t.DateOp,
		DateVal:        t.DateVal,
		Label:          t.Label,
		Category:       t.Category,
		CategoryParent: t.CategoryParent,
		Supplier:       t.Supplier,
		Amount:         t.Amount.InexactFloat64(),
		Comment:        t.Comment,
		AccountNum:     t.AccountNum,
		AccountLabel:   string(t.AccountLabel),
	}
	if t.AccountBalance != nil {
		balance := t.AccountBalance.InexactFloat64()
		dto.AccountBalance = &balance
	}
	return dto
}

func toTransactionDTOs(txs []core.Transaction) []transactionDTO {
	dtos := make([]transactionDTO, 0, len(txs))
	for _, t := range txs {
		dtos = append(dtos, toTransactionDTO(t))
	}
	return dtos
}

type ingestResponse struct {
	BatchID           string            `json:"batchId"`
	TotalProcessed    int               `json:"totalProcessed"`
	Retained          int               `json:"retained"`
	DuplicatesSkipped int               `json:"duplicatesSkipped"`
	ProcessingErrors  []ingest.RowError `json:"processingErrors,omitempty"`
	DateFrom          string            `json:"dateFrom"`
	DateTo            string            `json:"dateTo"`
	Accounts          []string          `json:"accounts"`
	Transactions      []transactionDTO  `json:"transactions"`
}

func toIngestResponse(result ingest.Result) ingestResponse {
	from, to := core.DateSpan(result.Transactions)
	accounts := make([]string, 0)
	for _, a := range core.Accounts(result.Transactions) {
		accounts = append(accounts, string(a))
	}
	return ingestResponse{
		BatchID:           result.BatchID,
		TotalProcessed:    result.TotalProcessed,
		Retained:          len(result.Transactions),
		DuplicatesSkipped: result.DuplicatesSkipped,
		ProcessingErrors:  result.Errors,
		DateFrom:          from,
		DateTo:            to,
		Accounts:          accounts,
		Transactions:      toTransactionDTOs(result.Transactions),
	}
}

type transactionsResponse struct {
	BatchID      string           `json:"batchId"`
	Count        int              `json:"count"`
	Filters      filter.State     `json:"filters"`
	Summary      summaryPayload   `json:"summary"`
	Transactions []transactionDTO `json:"transactions"`
}

type totalsDTO struct {
	Expenses float64 `json:"expenses"`
	Income   float64 `json:"income"`
	Net      float64 `json:"net"`
}

func toTotalsDTO(t aggregate.Totals) totalsDTO {
	return totalsDTO{
		Expenses: t.Expenses.InexactFloat64(),
		Income:   t.Income.InexactFloat64(),
		Net:      t.Net.InexactFloat64(),
	}
}

type categoryTotalDTO struct {
	CategoryParent string  `json:"categoryParent"`
	Amount         float64 `json:"amount"`
}

type breakdownDTO struct {
	Expenses []categoryTotalDTO `json:"expenses"`
	Income   []categoryTotalDTO `json:"income"`
}

// summaryPayload is the aggregation block shared by the summary endpoint and
// the transactions endpoint.
type summaryPayload struct {
	Totals     totalsDTO            `json:"totals"`
	PerAccount map[string]totalsDTO `json:"perAccount"`
	Essentials totalsSplitDTO       `json:"essentials"`
	ByCategory breakdownDTO         `json:"byCategory"`
}

type summaryResponse struct {
	BatchID string `json:"batchId"`
	Count   int    `json:"count"`
	summaryPayload
}

type totalsSplitDTO struct {
	Essential    float64 `json:"essential"`
	NonEssential float64 `json:"nonEssential"`
}

func toSummaryPayload(summary aggregate.Summary, breakdown aggregate.Breakdown) summaryPayload {
	perAccount := make(map[string]totalsDTO, len(summary.PerAccount))
	for account, totals := range summary.PerAccount {
		perAccount[string(account)] = toTotalsDTO(totals)
	}
	return summaryPayload{
		Totals:     toTotalsDTO(summary.Totals),
		PerAccount: perAccount,
		Essentials: totalsSplitDTO{
			Essential:    summary.Essentials.Essential.InexactFloat64(),
			NonEssential: summary.Essentials.NonEssential.InexactFloat64(),
		},
		ByCategory: breakdownDTO{
			Expenses: toCategoryTotalDTOs(breakdown.Expenses),
			Income:   toCategoryTotalDTOs(breakdown.Income),
		},
	}
}

func toSummaryResponse(batchID string, count int, summary aggregate.Summary, breakdown aggregate.Breakdown) summaryResponse {
	return summaryResponse{
		BatchID:        batchID,
		Count:          count,
		summaryPayload: toSummaryPayload(summary, breakdown),
	}
}

func toCategoryTotalDTOs(totals []aggregate.CategoryTotal) []categoryTotalDTO {
	dtos := make([]categoryTotalDTO, 0, len(totals))
	for _, t := range totals {
		dtos = append(dtos, categoryTotalDTO{CategoryParent: t.CategoryParent, Amount: t.Amount.InexactFloat64()})
	}
	return dtos
}

type annotationResponse struct {
	Key     string `json:"key"`
	Flagged bool   `json:"flagged"`
	Note    string `json:"note"`
}

type essentialsResponse struct {
	Fixed  []string `json:"fixed"`
	Custom []string `json:"custom"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
