package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

type (
	// ChartRow is one stacked bar: per-(kind, category) totals with the
	// fixed and variable portions accumulated separately.
	ChartRow struct {
		Kind     Kind
		Category string
		Fixed    decimal.Decimal
		Variable decimal.Decimal
		Total    decimal.Decimal
	}

	// ChartData holds the income and expense bar lists plus the maximum
	// total across both, floored at 1 so renderers can divide by it.
	ChartData struct {
		Income  []ChartRow
		Expense []ChartRow
		Max     decimal.Decimal
	}
)

// BuildChart aggregates the already-filtered union of income and
// expense movements into per-category stacked totals. Zero-total rows
// are dropped; each kind's list is ordered descending by total.
func BuildChart(rows []Classified) ChartData {
	type accum struct {
		order           int
		fixed, variable decimal.Decimal
	}
	buckets := make(map[[2]string]*accum)

	for _, c := range rows {
		key := [2]string{string(c.Kind), c.CategoryName}
		acc, ok := buckets[key]
		if !ok {
			acc = &accum{order: len(buckets)}
			buckets[key] = acc
		}
		if c.FixedStrict() {
			acc.fixed = acc.fixed.Add(c.Magnitude)
		} else {
			acc.variable = acc.variable.Add(c.Magnitude)
		}
	}

	var data ChartData
	type ordered struct {
		row   ChartRow
		order int
	}
	byKind := map[Kind][]ordered{}
	for key, acc := range buckets {
		total := acc.fixed.Add(acc.variable)
		if total.IsZero() {
			continue
		}
		kind := Kind(key[0])
		byKind[kind] = append(byKind[kind], ordered{
			row: ChartRow{
				Kind:     kind,
				Category: key[1],
				Fixed:    acc.fixed,
				Variable: acc.variable,
				Total:    total,
			},
			order: acc.order,
		})
	}

	for kind, list := range byKind {
		sort.SliceStable(list, func(i, j int) bool {
			if cmp := list[i].row.Total.Cmp(list[j].row.Total); cmp != 0 {
				return cmp > 0
			}
			return list[i].order < list[j].order
		})
		rows := make([]ChartRow, len(list))
		for i, o := range list {
			rows[i] = o.row
			if o.row.Total.GreaterThan(data.Max) {
				data.Max = o.row.Total
			}
		}
		if kind == KindIncome {
			data.Income = rows
		} else {
			data.Expense = rows
		}
	}

	if data.Max.LessThan(decimal.NewFromInt(1)) {
		data.Max = decimal.NewFromInt(1)
	}
	return data
}

// SegmentTotal returns the fixed or variable portion of the bar the
// segment points at, zero when the bar does not exist.
func (d ChartData) SegmentTotal(seg Segment) decimal.Decimal {
	list := d.Expense
	if seg.Kind == KindIncome {
		list = d.Income
	}
	for _, row := range list {
		if row.Category == seg.Category {
			if seg.Fixed {
				return row.Fixed
			}
			return row.Variable
		}
	}
	return decimal.Decimal{}
}
