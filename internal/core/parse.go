// Package core holds the normalized transaction model and the locale parsers
// that turn raw statement cells into canonical values.
//
// Both parsers follow a strict never-fail contract: malformed cells collapse
// to a documented default (zero amount, empty date) instead of an error, so a
// bad cell can never abort ingestion of an otherwise valid row.
package core

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// isoLayouts are tried first, most specific to least.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// frLayouts mirror the day/month/year pattern chain of the original export
// tooling, in priority order. The zero-padded layouts reject single-digit
// components, so the loose variants must follow them.
var frLayouts = []string{
	"02/01/2006",
	"02/01/06",
	"2/1/2006",
	"2/1/06",
	"2006-01-02",
}

// lastResortLayouts approximate a generic date construction for inputs that
// escaped both chains above.
var lastResortLayouts = []string{
	"2006/01/02",
	"02-01-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	time.RFC1123,
	time.ANSIC,
}

// ParseAmount converts a decimal-comma quantity ("5 926,24", "-41,80",
// "1.234,56") into an exact decimal. Whitespace is stripped; a comma is the
// decimal separator and dots before it are thousands separators; without a
// comma, a final dot followed by exactly three digits is a thousands
// separator, otherwise the dot is the decimal point. Empty or unparseable
// input yields zero, never an error.
func ParseAmount(s string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if cleaned == "" {
		return decimal.Decimal{}
	}

	if strings.Contains(cleaned, ",") {
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 {
			cleaned = strings.ReplaceAll(parts[0], ".", "") + "." + parts[1]
		}
		// More than one comma is malformed and falls through to the
		// zero default below.
	} else if i := strings.LastIndex(cleaned, "."); i >= 0 {
		if len(cleaned)-i-1 == 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
		}
	}
	cleaned = strings.TrimSuffix(cleaned, ".")

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}
	}
	return d
}

// ParseDate normalizes an arbitrary textual date to YYYY-MM-DD. ISO-8601
// forms are tried first, then the European day/month/year chain, then a
// last-resort set of generic layouts. Unparseable input yields "".
func ParseDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, chain := range [][]string{isoLayouts, frLayouts, lastResortLayouts} {
		for _, layout := range chain {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("2006-01-02")
			}
		}
	}
	return ""
}
