package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind is the income/expense classification of a movement or category.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	// KindUnknown is only ever returned by ResolveCategoryKind; a
	// movement's effective kind is always income or expense.
	KindUnknown Kind = ""
)

// Vocabulary observed across data sources for the free-text "tipo"
// column. Matching is substring-based after lower-casing and trimming,
// plus the single-letter abbreviations.
var (
	incomeWords  = []string{"ingreso", "income", "entrada", "deposito", "depósito", "abono"}
	expenseWords = []string{"gasto", "expense", "egreso", "salida", "retiro", "cargo"}
)

// ResolveKindText classifies a single kind-like text value. Returns
// KindUnknown when the text matches neither vocabulary; callers must
// have a fallback.
func ResolveKindText(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindUnknown
	}
	if s == "i" {
		return KindIncome
	}
	if s == "g" {
		return KindExpense
	}
	for _, w := range incomeWords {
		if strings.Contains(s, w) {
			return KindIncome
		}
	}
	for _, w := range expenseWords {
		if strings.Contains(s, w) {
			return KindExpense
		}
	}
	return KindUnknown
}

// Key names that suggest a string field carries type/kind semantics.
var kindishKeys = []string{"tipo", "type", "kind", "clase", "movimiento", "direccion"}

// Boolean field spellings meaning "is expense" / "is income".
var (
	expenseFlagKeys = []string{"es_gasto", "esgasto", "is_expense", "isexpense", "gasto", "expense"}
	incomeFlagKeys  = []string{"es_ingreso", "esingreso", "is_income", "isincome", "ingreso", "income"}
)

// ResolveCategoryKind determines the kind of a category from an open
// record whose shape is not guaranteed. The heuristics run in a fixed
// order, first success wins:
//
//  1. the canonical "tipo" field as text
//  2. any string field whose key suggests kind semantics
//  3. boolean fields spelled like "is expense"
//  4. boolean fields spelled like "is income"
//  5. any boolean field whose key contains an expense/income word
//
// Returns KindUnknown when nothing resolves; movements under such a
// category fall through to the movement-level resolver.
func ResolveCategoryKind(record map[string]any) Kind {
	if len(record) == 0 {
		return KindUnknown
	}

	if s, ok := record["tipo"].(string); ok {
		if k := ResolveKindText(s); k != KindUnknown {
			return k
		}
	}

	for _, key := range sortedKeys(record) {
		s, ok := record[key].(string)
		if !ok {
			continue
		}
		lower := strings.ToLower(key)
		for _, hint := range kindishKeys {
			if strings.Contains(lower, hint) {
				if k := ResolveKindText(s); k != KindUnknown {
					return k
				}
				break
			}
		}
	}

	if k := boolFlagKind(record, expenseFlagKeys, KindExpense, KindIncome); k != KindUnknown {
		return k
	}
	if k := boolFlagKind(record, incomeFlagKeys, KindIncome, KindExpense); k != KindUnknown {
		return k
	}

	for _, key := range sortedKeys(record) {
		b, ok := record[key].(bool)
		if !ok {
			continue
		}
		lower := strings.ToLower(key)
		switch {
		case containsAny(lower, expenseWords):
			if b {
				return KindExpense
			}
			return KindIncome
		case containsAny(lower, incomeWords):
			if b {
				return KindIncome
			}
			return KindExpense
		}
	}

	return KindUnknown
}

// boolFlagKind looks up the exact flag spellings in order and derives
// the kind from the flag's truth value.
func boolFlagKind(record map[string]any, keys []string, whenTrue, whenFalse Kind) Kind {
	for _, key := range keys {
		if b, ok := record[key].(bool); ok {
			if b {
				return whenTrue
			}
			return whenFalse
		}
	}
	return KindUnknown
}

// ResolveMovementKind computes the effective kind of a movement. The
// resolution order is load-bearing: explicit movement-level text beats
// the category default, which beats sign-based guessing. Always returns
// income or expense, never unknown: a non-negative amount defaults to
// income.
func ResolveMovementKind(rawKind string, categoryKind Kind, amount decimal.Decimal) Kind {
	if k := ResolveKindText(rawKind); k != KindUnknown {
		return k
	}
	if categoryKind == KindIncome || categoryKind == KindExpense {
		return categoryKind
	}
	if amount.IsNegative() {
		return KindExpense
	}
	return KindIncome
}

// sortedKeys returns the record's keys in lexical order so that the
// heuristic scan is reproducible regardless of map iteration order.
func sortedKeys(record map[string]any) []string {
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
