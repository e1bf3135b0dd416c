package core

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortKey selects the sort column.
type SortKey string

const (
	SortByDate     SortKey = "date"
	SortByCategory SortKey = "category"
	SortByDetail   SortKey = "detail"
	SortByFixed    SortKey = "fixed"
	SortByAmount   SortKey = "amount"
)

// SortDirection selects ascending or descending order.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is a (key, direction) pair.
type SortSpec struct {
	Key       SortKey
	Direction SortDirection
}

// DefaultSort is the initial ordering: biggest amounts first.
func DefaultSort() SortSpec {
	return SortSpec{Key: SortByAmount, Direction: SortDesc}
}

// NextSort computes the spec after the user clicks a sort key: clicking
// the current key flips direction; selecting a new key resets to that
// key's default direction. Amount defaults to descending (biggest
// first), every other key to ascending.
func NextSort(current SortSpec, clicked SortKey) SortSpec {
	if clicked == current.Key {
		dir := SortAsc
		if current.Direction == SortAsc {
			dir = SortDesc
		}
		return SortSpec{Key: clicked, Direction: dir}
	}
	if clicked == SortByAmount {
		return SortSpec{Key: clicked, Direction: SortDesc}
	}
	return SortSpec{Key: clicked, Direction: SortAsc}
}

func (s SortSpec) normalized() SortSpec {
	switch s.Key {
	case SortByDate, SortByCategory, SortByDetail, SortByFixed, SortByAmount:
	default:
		s.Key = SortByAmount
	}
	if s.Direction != SortAsc && s.Direction != SortDesc {
		s.Direction = SortDesc
	}
	return s
}

// newCollator builds a locale-aware case-insensitive collator. Built
// per sort pass: a Collator is not safe for concurrent use.
func newCollator() *collate.Collator {
	return collate.New(language.Spanish, collate.IgnoreCase)
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func flip(cmp int, dir SortDirection) int {
	if dir == SortDesc {
		return -cmp
	}
	return cmp
}

// SortMovements returns a new stably-ordered copy of rows. Text keys
// compare with locale collation; the primary comparison honors the
// direction; ties on non-amount keys break by descending magnitude and
// finally by original input index.
func SortMovements(rows []Classified, spec SortSpec) []Classified {
	spec = spec.normalized()
	out := append([]Classified(nil), rows...)
	col := newCollator()

	primary := func(a, b Classified) int {
		switch spec.Key {
		case SortByDate:
			return compareTimes(a.Time(), b.Time())
		case SortByCategory:
			return col.CompareString(a.CategoryName, b.CategoryName)
		case SortByDetail:
			return col.CompareString(a.DetailText, b.DetailText)
		case SortByFixed:
			return compareInts(boolRank(a.FixedStrict()), boolRank(b.FixedStrict()))
		default:
			return a.Magnitude.Cmp(b.Magnitude)
		}
	}

	type indexed struct {
		row Classified
		idx int
	}
	decorated := make([]indexed, len(out))
	for i, r := range out {
		decorated[i] = indexed{row: r, idx: i}
	}

	// The original input index is the final tie-break, which makes the
	// comparison a total order; no reliance on the underlying sort's
	// stability.
	sort.Slice(decorated, func(i, j int) bool {
		if cmp := flip(primary(decorated[i].row, decorated[j].row), spec.Direction); cmp != 0 {
			return cmp < 0
		}
		if spec.Key != SortByAmount {
			if cmp := decorated[j].row.Magnitude.Cmp(decorated[i].row.Magnitude); cmp != 0 {
				return cmp < 0
			}
		}
		return decorated[i].idx < decorated[j].idx
	})

	for i, d := range decorated {
		out[i] = d.row
	}
	return out
}

// SortGrouped sorts grouped rows with the same comparison rules; the
// fixed key uses the Sí=2/Mixto=1/No=0 ordinal and amount means the
// bucket total.
func SortGrouped(rows []GroupedRow, spec SortSpec) []GroupedRow {
	spec = spec.normalized()
	out := append([]GroupedRow(nil), rows...)
	col := newCollator()

	primary := func(a, b GroupedRow) int {
		switch spec.Key {
		case SortByDate:
			return compareTimes(a.LatestDate, b.LatestDate)
		case SortByCategory:
			return col.CompareString(a.Category, b.Category)
		case SortByDetail:
			return col.CompareString(a.Detail, b.Detail)
		case SortByFixed:
			return compareInts(a.FixedLabel.FixedRank(), b.FixedLabel.FixedRank())
		default:
			return a.Total.Cmp(b.Total)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if cmp := flip(primary(out[i], out[j]), spec.Direction); cmp != 0 {
			return cmp < 0
		}
		if spec.Key != SortByAmount {
			if cmp := out[j].Total.Cmp(out[i].Total); cmp != 0 {
				return cmp < 0
			}
		}
		return false
	})
	return out
}

func boolRank(fixed bool) int {
	if fixed {
		return 1
	}
	return 0
}
