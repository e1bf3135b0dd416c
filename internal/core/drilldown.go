package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

type (
	// Segment identifies one chart bar sub-section: a (kind, fixed,
	// category) triple selected for drill-down.
	Segment struct {
		Kind     Kind
		Fixed    bool
		Category string
	}

	// DetailTotal is a per-detail sum inside a month bucket.
	DetailTotal struct {
		Detail string
		Total  decimal.Decimal
	}

	// MonthBucket groups the segment's movements of one calendar month.
	MonthBucket struct {
		Month   int
		Details []DetailTotal
		Total   decimal.Decimal
	}

	// DrilldownData is the month × detail breakdown for a segment. Max
	// is the largest per-detail total across all months, floored at 1.
	DrilldownData struct {
		Segment Segment
		Months  []MonthBucket
		Max     decimal.Decimal
	}
)

// ResolveSegment self-heals a stale selection: a segment whose value in
// the current chart is zero no longer points at anything, so the
// selection is cleared (nil) instead of rendering empty drill-down.
func ResolveSegment(selected *Segment, chart ChartData) *Segment {
	if selected == nil {
		return nil
	}
	if chart.SegmentTotal(*selected).IsZero() {
		return nil
	}
	return selected
}

// BuildDrilldown buckets the movements matching the segment into the 12
// calendar months, grouping by detail text within each month. The rows
// passed in should already be scoped to the selected year. Empty months
// are dropped.
func BuildDrilldown(rows []Classified, seg Segment) DrilldownData {
	type monthAccum struct {
		totals map[string]decimal.Decimal
		order  map[string]int
		total  decimal.Decimal
	}
	months := [13]*monthAccum{} // 1-12, index 0 unused

	for _, c := range rows {
		if c.Kind != seg.Kind || c.CategoryName != seg.Category || c.FixedStrict() != seg.Fixed {
			continue
		}
		month := c.Month()
		if month < 1 || month > 12 {
			continue
		}
		acc := months[month]
		if acc == nil {
			acc = &monthAccum{
				totals: make(map[string]decimal.Decimal),
				order:  make(map[string]int),
			}
			months[month] = acc
		}
		detail := c.DetailText
		if detail == "" {
			detail = DetailPlaceholder
		}
		if _, seen := acc.totals[detail]; !seen {
			acc.order[detail] = len(acc.order)
		}
		acc.totals[detail] = acc.totals[detail].Add(c.Magnitude)
		acc.total = acc.total.Add(c.Magnitude)
	}

	data := DrilldownData{Segment: seg}
	for month := 1; month <= 12; month++ {
		acc := months[month]
		if acc == nil {
			continue
		}
		bucket := MonthBucket{Month: month, Total: acc.total}
		for detail, total := range acc.totals {
			bucket.Details = append(bucket.Details, DetailTotal{Detail: detail, Total: total})
			if total.GreaterThan(data.Max) {
				data.Max = total
			}
		}
		sort.SliceStable(bucket.Details, func(i, j int) bool {
			if cmp := bucket.Details[i].Total.Cmp(bucket.Details[j].Total); cmp != 0 {
				return cmp > 0
			}
			return acc.order[bucket.Details[i].Detail] < acc.order[bucket.Details[j].Detail]
		})
		data.Months = append(data.Months, bucket)
	}

	if data.Max.LessThan(decimal.NewFromInt(1)) {
		data.Max = decimal.NewFromInt(1)
	}
	return data
}
