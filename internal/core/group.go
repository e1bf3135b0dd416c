package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// FixedLabel is the derived fixed/variable/mixed label of a bucket.
type FixedLabel string

const (
	FixedYes   FixedLabel = "Sí"
	FixedNo    FixedLabel = "No"
	FixedMixed FixedLabel = "Mixto"
)

const (
	// DetailPlaceholder stands in for movements without a detail memo.
	DetailPlaceholder = "Sin detalle"
	// MultipleLabel is shown for a disabled grouping dimension whose
	// bucket holds more than one distinct value.
	MultipleLabel = "Varios"

	allBucket = "__all__"
)

// GroupOptions selects the active grouping dimensions.
type GroupOptions struct {
	ByCategory bool
	ByDetail   bool
}

// GroupedRow is an aggregated bucket of movements sharing category
// and/or detail. Ephemeral, rebuilt on every recompute.
type GroupedRow struct {
	Category   string
	Detail     string
	Total      decimal.Decimal
	Count      int
	FixedLabel FixedLabel
	// LatestDate is the max date in the bucket, zero if no date
	// parsed; used only as a sort key.
	LatestDate time.Time
}

type groupAccum struct {
	order       int
	categories  map[string]struct{}
	details     map[string]struct{}
	total       decimal.Decimal
	count       int
	hasFixed    bool
	hasVariable bool
	latest      time.Time
}

// BuildGroupedRows collapses movements into category/detail buckets.
// A disabled dimension collapses all rows onto a shared bucket value;
// its displayed label is the single value when the bucket is
// homogeneous, the generic multiple label otherwise. Output is in the
// canonical order: descending by total.
func BuildGroupedRows(rows []Classified, opts GroupOptions) []GroupedRow {
	buckets := make(map[[2]string]*groupAccum)

	for _, c := range rows {
		detail := c.DetailText
		if detail == "" {
			detail = DetailPlaceholder
		}

		key := [2]string{allBucket, allBucket}
		if opts.ByCategory {
			key[0] = c.CategoryName
		}
		if opts.ByDetail {
			key[1] = detail
		}

		acc, ok := buckets[key]
		if !ok {
			acc = &groupAccum{
				order:      len(buckets),
				categories: make(map[string]struct{}),
				details:    make(map[string]struct{}),
			}
			buckets[key] = acc
		}
		acc.categories[c.CategoryName] = struct{}{}
		acc.details[detail] = struct{}{}
		acc.total = acc.total.Add(c.Magnitude)
		acc.count++
		if c.FixedStrict() {
			acc.hasFixed = true
		} else {
			acc.hasVariable = true
		}
		if t := c.Time(); !t.IsZero() && t.After(acc.latest) {
			acc.latest = t
		}
	}

	type orderedRow struct {
		row   GroupedRow
		order int
	}
	rowsOut := make([]orderedRow, 0, len(buckets))
	for key, acc := range buckets {
		rowsOut = append(rowsOut, orderedRow{
			row: GroupedRow{
				Category:   bucketLabel(key[0], acc.categories),
				Detail:     bucketLabel(key[1], acc.details),
				Total:      acc.total,
				Count:      acc.count,
				FixedLabel: fixedLabel(acc.hasFixed, acc.hasVariable),
				LatestDate: acc.latest,
			},
			order: acc.order,
		})
	}

	// Canonical order before any explicit sort: biggest bucket first,
	// first-seen order as tie-break for determinism.
	sort.SliceStable(rowsOut, func(i, j int) bool {
		if cmp := rowsOut[i].row.Total.Cmp(rowsOut[j].row.Total); cmp != 0 {
			return cmp > 0
		}
		return rowsOut[i].order < rowsOut[j].order
	})

	out := make([]GroupedRow, len(rowsOut))
	for i, r := range rowsOut {
		out[i] = r.row
	}
	return out
}

func bucketLabel(bucketValue string, seen map[string]struct{}) string {
	if bucketValue != allBucket {
		return bucketValue
	}
	if len(seen) == 1 {
		for only := range seen {
			return only
		}
	}
	return MultipleLabel
}

func fixedLabel(hasFixed, hasVariable bool) FixedLabel {
	switch {
	case hasFixed && hasVariable:
		return FixedMixed
	case hasFixed:
		return FixedYes
	default:
		return FixedNo
	}
}

// FixedRank maps the label to its sort ordinal: Sí=2, Mixto=1, No=0.
func (l FixedLabel) FixedRank() int {
	switch l {
	case FixedYes:
		return 2
	case FixedMixed:
		return 1
	default:
		return 0
	}
}
