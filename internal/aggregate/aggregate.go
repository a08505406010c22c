// Package aggregate computes summary statistics over a filtered view.
// Every call recomputes from scratch; the view is not stable across calls
// because annotations are externally mutable.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"comptes/internal/core"
)

// Totals is the expense/income/net triple for one grouping.
type Totals struct {
	Expenses decimal.Decimal `json:"expenses"`
	Income   decimal.Decimal `json:"income"`
	Net      decimal.Decimal `json:"net"`
}

func (t *Totals) add(amount decimal.Decimal) {
	if amount.IsNegative() {
		t.Expenses = t.Expenses.Add(amount.Abs())
	} else {
		t.Income = t.Income.Add(amount)
	}
	t.Net = t.Income.Sub(t.Expenses)
}

// EssentialsSplit partitions expenses by the essential-category predicate.
// Income rows are excluded.
type EssentialsSplit struct {
	Essential    decimal.Decimal `json:"essential"`
	NonEssential decimal.Decimal `json:"nonEssential"`
}

// Summary is the full aggregation result for one view.
type Summary struct {
	Totals     Totals                       `json:"totals"`
	PerAccount map[core.AccountLabel]Totals `json:"perAccount"`
	Essentials EssentialsSplit              `json:"essentials"`
}

// Compute aggregates the view. essential may be nil, in which case every
// expense counts as non-essential.
func Compute(view []core.Transaction, essential func(categoryParent string) bool) Summary {
	summary := Summary{PerAccount: make(map[core.AccountLabel]Totals)}

	for _, tx := range view {
		summary.Totals.add(tx.Amount)

		account := summary.PerAccount[tx.AccountLabel]
		account.add(tx.Amount)
		summary.PerAccount[tx.AccountLabel] = account

		if tx.Amount.IsNegative() {
			if essential != nil && essential(tx.CategoryParent) {
				summary.Essentials.Essential = summary.Essentials.Essential.Add(tx.Amount.Abs())
			} else {
				summary.Essentials.NonEssential = summary.Essentials.NonEssential.Add(tx.Amount.Abs())
			}
		}
	}
	return summary
}

// CategoryTotal is one category parent's total for a chart feed.
type CategoryTotal struct {
	CategoryParent string          `json:"categoryParent"`
	Amount         decimal.Decimal `json:"amount"`
}

// Breakdown holds per-category expense and income totals, each sorted by
// amount descending.
type Breakdown struct {
	Expenses []CategoryTotal `json:"expenses"`
	Income   []CategoryTotal `json:"income"`
}

// ByCategory groups the view by category parent. Expense amounts are
// reported as absolute values.
func ByCategory(view []core.Transaction) Breakdown {
	expenses := make(map[string]decimal.Decimal)
	income := make(map[string]decimal.Decimal)

	for _, tx := range view {
		if tx.Amount.IsNegative() {
			expenses[tx.CategoryParent] = expenses[tx.CategoryParent].Add(tx.Amount.Abs())
		} else {
			income[tx.CategoryParent] = income[tx.CategoryParent].Add(tx.Amount)
		}
	}

	return Breakdown{
		Expenses: sortedTotals(expenses),
		Income:   sortedTotals(income),
	}
}

func sortedTotals(byCategory map[string]decimal.Decimal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCategory))
	for category, amount := range byCategory {
		out = append(out, CategoryTotal{CategoryParent: category, Amount: amount})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if cmp := out[i].Amount.Cmp(out[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return out[i].CategoryParent < out[j].CategoryParent
	})
	return out
}
