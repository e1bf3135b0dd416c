package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type (
	// Classified is a movement with its resolved kind, absolute
	// magnitude and denormalized category attached. It is ephemeral:
	// rebuilt from scratch on every snapshot change.
	Classified struct {
		Movement
		Kind         Kind
		Magnitude    decimal.Decimal
		CategoryName string
		CategoryKind Kind
		// DetailText is the trimmed detail memo; "" means absent,
		// never an empty-but-present string.
		DetailText string
	}

	// ClassifiedSet holds the eager income/expense partition, each
	// ordered by descending magnitude so downstream views never
	// re-partition.
	ClassifiedSet struct {
		Income  []Classified
		Expense []Classified
	}

	// Totals summarizes a classified set. Zero magnitudes contribute
	// nothing, so they are excluded from totals by construction while
	// still appearing in listings.
	Totals struct {
		Income  decimal.Decimal
		Expense decimal.Decimal
		Balance decimal.Decimal
	}
)

// ClassifyMovement resolves a single movement against the category
// lookup. Never fails: every result has exactly one of income/expense.
func ClassifyMovement(m Movement, categories map[string]Category) Classified {
	categoryName := UncategorizedName
	categoryKind := KindUnknown
	if cat, ok := categories[m.CategoryID]; ok {
		if strings.TrimSpace(cat.Name) != "" {
			categoryName = cat.Name
		}
		categoryKind = cat.Kind
	}

	return Classified{
		Movement:     m,
		Kind:         ResolveMovementKind(m.RawKind, categoryKind, m.Amount),
		Magnitude:    m.Amount.Abs(),
		CategoryName: categoryName,
		CategoryKind: categoryKind,
		DetailText:   strings.TrimSpace(m.Detail),
	}
}

// Classify classifies a full snapshot and partitions it into income and
// expense lists, each sorted by descending magnitude with the original
// order as tie-break.
func Classify(movements []Movement, categories map[string]Category) ClassifiedSet {
	var set ClassifiedSet
	for _, m := range movements {
		c := ClassifyMovement(m, categories)
		if c.Kind == KindIncome {
			set.Income = append(set.Income, c)
		} else {
			set.Expense = append(set.Expense, c)
		}
	}
	sortByMagnitudeDesc(set.Income)
	sortByMagnitudeDesc(set.Expense)
	return set
}

func sortByMagnitudeDesc(rows []Classified) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Magnitude.GreaterThan(rows[j].Magnitude)
	})
}

// All returns the union of both partitions, income first.
func (s ClassifiedSet) All() []Classified {
	out := make([]Classified, 0, len(s.Income)+len(s.Expense))
	out = append(out, s.Income...)
	out = append(out, s.Expense...)
	return out
}

// Totals sums the magnitudes of both partitions.
func (s ClassifiedSet) Totals() Totals {
	var t Totals
	for _, c := range s.Income {
		t.Income = t.Income.Add(c.Magnitude)
	}
	for _, c := range s.Expense {
		t.Expense = t.Expense.Add(c.Magnitude)
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}
