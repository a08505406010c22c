// Package filter narrows and orders an in-memory transaction collection.
package filter

import (
	"time"

	"comptes/internal/core"
)

// Mode selects which category class a pass keeps.
type Mode string

const (
	ModeAll           Mode = "all"
	ModeEssentials    Mode = "essentials"
	ModeNonEssentials Mode = "nonEssentials"
)

// Period names a preset date window.
type Period string

const (
	PeriodCustom    Period = "custom"
	PeriodThisMonth Period = "thisMonth"
	PeriodLastMonth Period = "lastMonth"
)

// Sort is the single active sort field and direction.
type Sort struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Toggle flips direction on the same field and resets to descending on a
// new field.
func (s *Sort) Toggle(field string) {
	if s.Field == field {
		s.Desc = !s.Desc
		return
	}
	s.Field = field
	s.Desc = true
}

// State is one caller's filter configuration. It carries no reference to a
// transaction collection; out-of-range bounds simply yield an empty view.
type State struct {
	DateFrom        string              `json:"dateFrom"`
	DateTo          string              `json:"dateTo"`
	Accounts        []core.AccountLabel `json:"accounts"`
	Search          string              `json:"search"`
	CategoryPin     string              `json:"category,omitempty"`
	CategoryParents []string            `json:"categories,omitempty"`
	Mode            Mode                `json:"mode"`
	FlaggedOnly     bool                `json:"flaggedOnly"`
	Sort            Sort                `json:"sort"`
}

// DefaultState covers the collection's full date span and every account it
// contains, newest operations first.
func DefaultState(txs []core.Transaction) State {
	from, to := core.DateSpan(txs)
	return State{
		DateFrom: from,
		DateTo:   to,
		Accounts: core.Accounts(txs),
		Mode:     ModeAll,
		Sort:     Sort{Field: "dateOp", Desc: true},
	}
}

// ApplyPreset sets the date window for a calendar-month preset, clamped to
// the collection's span. PeriodCustom leaves the bounds untouched.
func (s *State) ApplyPreset(period Period, txs []core.Transaction, now time.Time) {
	if period == PeriodCustom {
		return
	}

	month := now
	if period == PeriodLastMonth {
		month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	}
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	from := first.Format("2006-01-02")
	to := last.Format("2006-01-02")

	min, max := core.DateSpan(txs)
	if min != "" && from < min {
		from = min
	}
	if max != "" && to > max {
		to = max
	}
	s.DateFrom = from
	s.DateTo = to
}
