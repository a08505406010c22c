package core

import (
	"github.com/shopspring/decimal"
)

const (
	// CategoryUncategorized is the sentinel parent category assigned to rows
	// whose export carried no categoryParent value.
	CategoryUncategorized = "Non catégorisé"

	// KeyDelimiter joins the four identity fields. External annotation stores
	// are keyed on this exact form; changing it orphans every stored note.
	KeyDelimiter = "-"
)

// AccountLabel identifies one of the two known account identities.
type AccountLabel string

const (
	AccountPrimary AccountLabel = "BoursoBank"
	AccountJoint   AccountLabel = "BoursoBank (joint)"
)

// ParseAccountLabel clamps a raw label to the closed two-value set. Anything
// that is not the literal joint-account string maps to the primary account;
// downstream filtering assumes exactly these two values.
func ParseAccountLabel(raw string) AccountLabel {
	if raw == string(AccountJoint) {
		return AccountJoint
	}
	return AccountPrimary
}

// Transaction is one normalized statement record. Instances are immutable
// once built by the ingestion pipeline.
type Transaction struct {
	DateOp         string           // canonical YYYY-MM-DD, or "" when unparseable
	DateVal        string           // canonical YYYY-MM-DD, or "" when unparseable
	Label          string
	Category       string
	CategoryParent string
	Supplier       *string // resolved merchant name, nil when absent
	Amount         decimal.Decimal
	Comment        string
	AccountNum     string
	AccountLabel   AccountLabel
	AccountBalance *decimal.Decimal // running balance snapshot, nil when the row had none
}

// Key returns the transaction's identity key.
func (t Transaction) Key() string {
	return Key(t.DateOp, t.Label, t.Amount, t.AccountNum)
}

// Key derives the deterministic identity key used for both deduplication and
// external annotation lookup. The amount renders with trailing zeros trimmed
// ("-41.80" -> "-41.8") to stay byte-identical with keys minted by the
// pre-existing annotation store.
func Key(dateOp, label string, amount decimal.Decimal, accountNum string) string {
	return dateOp + KeyDelimiter + label + KeyDelimiter + amount.String() + KeyDelimiter + accountNum
}

// DateSpan returns the minimum and maximum operation dates present in the
// collection. Empty dates are ignored; an empty collection yields "", "".
func DateSpan(txs []Transaction) (min, max string) {
	for _, t := range txs {
		if t.DateOp == "" {
			continue
		}
		if min == "" || t.DateOp < min {
			min = t.DateOp
		}
		if t.DateOp > max {
			max = t.DateOp
		}
	}
	return min, max
}

// Accounts returns the distinct account labels in first-seen order.
func Accounts(txs []Transaction) []AccountLabel {
	var out []AccountLabel
	seen := map[AccountLabel]struct{}{}
	for _, t := range txs {
		if _, ok := seen[t.AccountLabel]; ok {
			continue
		}
		seen[t.AccountLabel] = struct{}{}
		out = append(out, t.AccountLabel)
	}
	return out
}
