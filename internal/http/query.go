package http

import (
	"net/http"
	"strings"
	"time"

	"comptes/internal/core"
	"comptes/internal/filter"
)

// sortFields lists the transaction fields a client may sort on.
var sortFields = map[string]bool{
	"dateOp":         true,
	"dateVal":        true,
	"label":          true,
	"category":       true,
	"categoryParent": true,
	"supplierFound":  true,
	"amount":         true,
	"comment":        true,
	"accountNum":     true,
	"accountLabel":   true,
	"accountbalance": true,
}

// parseFilterState builds a filter state from query parameters, starting
// from the batch's default state. Unknown or malformed values fall back to
// the default rather than erroring.
func parseFilterState(r *http.Request, txs []core.Transaction) filter.State {
	q := r.URL.Query()
	state := filter.DefaultState(txs)

	switch filter.Period(strings.TrimSpace(q.Get("period"))) {
	case filter.PeriodThisMonth:
		state.ApplyPreset(filter.PeriodThisMonth, txs, time.Now())
	case filter.PeriodLastMonth:
		state.ApplyPreset(filter.PeriodLastMonth, txs, time.Now())
	}

	if v := strings.TrimSpace(q.Get("dateFrom")); v != "" {
		state.DateFrom = v
	}
	if v := strings.TrimSpace(q.Get("dateTo")); v != "" {
		state.DateTo = v
	}

	// accounts and categories may repeat and may hold comma-separated lists
	if accounts := splitParam(q["accounts"]); len(accounts) > 0 {
		state.Accounts = nil
		for _, a := range accounts {
			state.Accounts = append(state.Accounts, core.AccountLabel(a))
		}
	}

	state.Search = strings.TrimSpace(q.Get("search"))
	state.CategoryPin = strings.TrimSpace(q.Get("category"))
	state.CategoryParents = splitParam(q["categories"])

	switch mode := filter.Mode(strings.TrimSpace(q.Get("mode"))); mode {
	case filter.ModeEssentials, filter.ModeNonEssentials:
		state.Mode = mode
	}

	if v := strings.TrimSpace(q.Get("flagged")); v == "true" || v == "1" {
		state.FlaggedOnly = true
	}

	if v := strings.TrimSpace(q.Get("sort")); sortFields[v] {
		state.Sort.Field = v
		state.Sort.Desc = strings.TrimSpace(q.Get("dir")) != "asc"
	}

	return state
}

func splitParam(values []string) []string {
	var out []string
	for _, v := range values {
		for _, raw := range strings.Split(v, ",") {
			if raw = strings.TrimSpace(raw); raw != "" {
				out = append(out, raw)
			}
		}
	}
	return out
}
