package filter

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"comptes/internal/annotations"
	"comptes/internal/core"
)

// Engine applies a State over a transaction collection. It never mutates
// its input; annotation reads are one point-in-time Get per transaction
// per pass.
type Engine struct {
	Annotations annotations.Store
	Essential   func(categoryParent string) bool
}

// Apply returns the filtered, sorted view for the given state.
func (e *Engine) Apply(ctx context.Context, txs []core.Transaction, state State) ([]core.Transaction, error) {
	accounts := make(map[core.AccountLabel]struct{}, len(state.Accounts))
	for _, a := range state.Accounts {
		accounts[a] = struct{}{}
	}
	allowed := make(map[string]struct{}, len(state.CategoryParents))
	for _, c := range state.CategoryParents {
		allowed[c] = struct{}{}
	}
	search := strings.ToLower(strings.TrimSpace(state.Search))

	view := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.DateOp < state.DateFrom || tx.DateOp > state.DateTo {
			continue
		}
		if _, ok := accounts[tx.AccountLabel]; !ok {
			continue
		}
		if state.CategoryPin != "" && tx.CategoryParent != state.CategoryPin {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[tx.CategoryParent]; !ok {
				continue
			}
		}
		if state.Mode != ModeAll && e.Essential != nil {
			essential := e.Essential(tx.CategoryParent)
			if state.Mode == ModeEssentials && !essential {
				continue
			}
			if state.Mode == ModeNonEssentials && essential {
				continue
			}
		}
		if search != "" || state.FlaggedOnly {
			ann, _, err := e.lookup(ctx, tx)
			if err != nil {
				return nil, err
			}
			if search != "" && !matchesSearch(tx, ann, search) {
				continue
			}
			if state.FlaggedOnly && !ann.Flagged {
				continue
			}
		}
		view = append(view, tx)
	}

	sortView(view, state.Sort)
	return view, nil
}

func (e *Engine) lookup(ctx context.Context, tx core.Transaction) (annotations.Annotation, bool, error) {
	if e.Annotations == nil {
		return annotations.Annotation{}, false, nil
	}
	return e.Annotations.Get(ctx, tx.Key())
}

// matchesSearch reports a case-insensitive substring hit on the label,
// supplier, comment or annotation note.
func matchesSearch(tx core.Transaction, ann annotations.Annotation, search string) bool {
	if strings.Contains(strings.ToLower(tx.Label), search) {
		return true
	}
	if tx.Supplier != nil && strings.Contains(strings.ToLower(*tx.Supplier), search) {
		return true
	}
	if strings.Contains(strings.ToLower(tx.Comment), search) {
		return true
	}
	return strings.Contains(strings.ToLower(ann.Note), search)
}

// sortView orders the view in place. String fields use French collation,
// amounts compare numerically, missing optionals sort as the empty string.
// The collator is built per call; collate.Collator is not safe for
// concurrent use.
func sortView(view []core.Transaction, s Sort) {
	if s.Field == "" {
		return
	}
	collator := collate.New(language.French)

	sort.SliceStable(view, func(i, j int) bool {
		cmp := compareField(collator, view[i], view[j], s.Field)
		if s.Desc {
			return cmp > 0
		}
		return cmp < 0
	})
}

func compareField(collator *collate.Collator, a, b core.Transaction, field string) int {
	switch field {
	case "amount":
		return a.Amount.Cmp(b.Amount)
	case "accountbalance":
		return balanceOf(a).Cmp(balanceOf(b))
	default:
		return collator.CompareString(stringField(a, field), stringField(b, field))
	}
}

func balanceOf(tx core.Transaction) decimal.Decimal {
	if tx.AccountBalance == nil {
		return decimal.Decimal{}
	}
	return *tx.AccountBalance
}

func stringField(tx core.Transaction, field string) string {
	switch field {
	case "dateOp":
		return tx.DateOp
	case "dateVal":
		return tx.DateVal
	case "label":
		return tx.Label
	case "category":
		return tx.Category
	case "categoryParent":
		return tx.CategoryParent
	case "supplierFound":
		if tx.Supplier == nil {
			return ""
		}
		return *tx.Supplier
	case "comment":
		return tx.Comment
	case "accountNum":
		return tx.AccountNum
	case "accountLabel":
		return string(tx.AccountLabel)
	default:
		return ""
	}
}
