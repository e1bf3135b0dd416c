package core

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// EmptyState distinguishes why a pivot came back empty. Callers render
// different messaging for "you filtered everything out" vs "there is
// nothing to show".
type EmptyState string

const (
	EmptyNone     EmptyState = ""
	EmptyNoData   EmptyState = "no_data"
	EmptyFiltered EmptyState = "filtered"
)

type (
	// PivotOptions are the yearly pivot's toggles and narrowing
	// selectors. Year 0 means all years; empty category/detail mean no
	// narrowing.
	PivotOptions struct {
		ShowIncome   bool
		ShowExpense  bool
		ShowFixed    bool
		ShowVariable bool
		Year         int
		Category     string
		Detail       string
	}

	// YearlyCategory is one ranked pivot row: four independent
	// year-indexed series plus totals over the currently enabled ones.
	// Key is the category id, falling back to the display name when the
	// id is absent.
	YearlyCategory struct {
		Key             string
		Name            string
		IncomeFixed     map[int]decimal.Decimal
		IncomeVariable  map[int]decimal.Decimal
		ExpenseFixed    map[int]decimal.Decimal
		ExpenseVariable map[int]decimal.Decimal
		TotalFixed      decimal.Decimal
		TotalVariable   decimal.Decimal
		Total           decimal.Decimal
	}

	// YearTotals is a per-year (or grand) subtotal triple.
	YearTotals struct {
		Fixed    decimal.Decimal
		Variable decimal.Decimal
		Total    decimal.Decimal
	}

	// Pivot is the category × year evolution matrix.
	Pivot struct {
		Years        []int
		Categories   []YearlyCategory
		TotalsByYear map[int]YearTotals
		GrandTotal   YearTotals
		Max          decimal.Decimal
		Empty        EmptyState
	}
)

// seriesVisible reports which of the four series the toggles enable.
func (o PivotOptions) seriesVisible(kind Kind, fixed bool) bool {
	if kind == KindIncome && !o.ShowIncome {
		return false
	}
	if kind == KindExpense && !o.ShowExpense {
		return false
	}
	if fixed && !o.ShowFixed {
		return false
	}
	if !fixed && !o.ShowVariable {
		return false
	}
	return true
}

// BuildPivot builds the multi-year evolution matrix from the full
// movement history. Kind resolution follows the movement-level order;
// the fixed flag uses the tolerant truthy parse because historical rows
// carry several encodings. Categories whose total over the enabled
// series is zero are pruned; the rest are ranked descending by total.
func BuildPivot(movements []Movement, categories map[string]Category, opts PivotOptions) Pivot {
	pivot := Pivot{
		TotalsByYear: make(map[int]YearTotals),
		Max:          decimal.NewFromInt(1),
	}

	// Either toggle pair fully off is an explicit user choice, not an
	// absence of data.
	if (!opts.ShowIncome && !opts.ShowExpense) || (!opts.ShowFixed && !opts.ShowVariable) {
		pivot.Empty = EmptyFiltered
		return pivot
	}

	detailQuery := NormalizeSearchText(opts.Detail)
	narrowCategory := opts.Category
	if narrowCategory == CategoryAll {
		narrowCategory = ""
	}

	type accum struct {
		order  int
		name   string
		series [2][2]map[int]decimal.Decimal // [kind][fixed] -> year -> sum
	}
	buckets := make(map[string]*accum)
	yearsSeen := make(map[int]struct{})

	kindIndex := func(k Kind) int {
		if k == KindIncome {
			return 0
		}
		return 1
	}
	fixedIndex := func(fixed bool) int {
		if fixed {
			return 0
		}
		return 1
	}

	for _, m := range movements {
		year := m.Year()
		if year == 0 {
			continue
		}
		if opts.Year != 0 && year != opts.Year {
			continue
		}

		name := UncategorizedName
		categoryKind := KindUnknown
		if cat, ok := categories[m.CategoryID]; ok {
			if strings.TrimSpace(cat.Name) != "" {
				name = cat.Name
			}
			categoryKind = cat.Kind
		}
		if narrowCategory != "" && name != narrowCategory {
			continue
		}
		if detailQuery != "" && !strings.Contains(NormalizeSearchText(m.Detail), detailQuery) {
			continue
		}

		kind := ResolveMovementKind(m.RawKind, categoryKind, m.Amount)
		fixed := m.FixedLoose()

		key := m.CategoryID
		if key == "" {
			key = name
		}
		acc, ok := buckets[key]
		if !ok {
			acc = &accum{order: len(buckets), name: name}
			for k := range acc.series {
				for f := range acc.series[k] {
					acc.series[k][f] = make(map[int]decimal.Decimal)
				}
			}
			buckets[key] = acc
		}

		cell := acc.series[kindIndex(kind)][fixedIndex(fixed)]
		cell[year] = cell[year].Add(m.Amount.Abs())
		yearsSeen[year] = struct{}{}
	}

	if len(yearsSeen) == 0 {
		pivot.Empty = EmptyNoData
		return pivot
	}

	for year := range yearsSeen {
		pivot.Years = append(pivot.Years, year)
	}
	sort.Ints(pivot.Years)

	type rankedCategory struct {
		cat   YearlyCategory
		order int
	}
	var ranked []rankedCategory

	for key, acc := range buckets {
		cat := YearlyCategory{
			Key:             key,
			Name:            acc.name,
			IncomeFixed:     acc.series[0][0],
			IncomeVariable:  acc.series[0][1],
			ExpenseFixed:    acc.series[1][0],
			ExpenseVariable: acc.series[1][1],
		}

		for _, kind := range []Kind{KindIncome, KindExpense} {
			for _, fixed := range []bool{true, false} {
				if !opts.seriesVisible(kind, fixed) {
					continue
				}
				cells := acc.series[kindIndex(kind)][fixedIndex(fixed)]
				for year, value := range cells {
					if fixed {
						cat.TotalFixed = cat.TotalFixed.Add(value)
					} else {
						cat.TotalVariable = cat.TotalVariable.Add(value)
					}

					totals := pivot.TotalsByYear[year]
					if fixed {
						totals.Fixed = totals.Fixed.Add(value)
					} else {
						totals.Variable = totals.Variable.Add(value)
					}
					totals.Total = totals.Total.Add(value)
					pivot.TotalsByYear[year] = totals

					if value.GreaterThan(pivot.Max) {
						pivot.Max = value
					}
				}
			}
		}

		cat.Total = cat.TotalFixed.Add(cat.TotalVariable)
		if cat.Total.IsZero() {
			continue
		}
		ranked = append(ranked, rankedCategory{cat: cat, order: acc.order})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if cmp := ranked[i].cat.Total.Cmp(ranked[j].cat.Total); cmp != 0 {
			return cmp > 0
		}
		return ranked[i].order < ranked[j].order
	})
	pivot.Categories = make([]YearlyCategory, len(ranked))
	for i, r := range ranked {
		pivot.Categories[i] = r.cat
	}

	for _, totals := range pivot.TotalsByYear {
		pivot.GrandTotal.Fixed = pivot.GrandTotal.Fixed.Add(totals.Fixed)
		pivot.GrandTotal.Variable = pivot.GrandTotal.Variable.Add(totals.Variable)
		pivot.GrandTotal.Total = pivot.GrandTotal.Total.Add(totals.Total)
	}

	return pivot
}
