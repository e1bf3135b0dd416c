package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func drilldownFixtures() []Classified {
	return []Classified{
		{Movement: Movement{ID: "1", Date: "2024-01-10", Fixed: true}, Kind: KindExpense, Magnitude: dec("20"), CategoryName: "Food", DetailText: "mercado"},
		{Movement: Movement{ID: "2", Date: "2024-01-25", Fixed: true}, Kind: KindExpense, Magnitude: dec("5"), CategoryName: "Food", DetailText: "pan"},
		{Movement: Movement{ID: "3", Date: "2024-03-02", Fixed: true}, Kind: KindExpense, Magnitude: dec("12"), CategoryName: "Food", DetailText: ""},
		// Different fixed portion and category: both must be excluded.
		{Movement: Movement{ID: "4", Date: "2024-01-12"}, Kind: KindExpense, Magnitude: dec("9"), CategoryName: "Food", DetailText: "restaurante"},
		{Movement: Movement{ID: "5", Date: "2024-01-12", Fixed: true}, Kind: KindExpense, Magnitude: dec("40"), CategoryName: "Transporte", DetailText: "abono"},
	}
}

func TestBuildDrilldownMonthBuckets(t *testing.T) {
	seg := Segment{Kind: KindExpense, Fixed: true, Category: "Food"}
	data := BuildDrilldown(drilldownFixtures(), seg)

	if data.Segment != seg {
		t.Fatalf("segment echo: got %+v", data.Segment)
	}
	if len(data.Months) != 2 {
		t.Fatalf("expected 2 non-empty months, got %d", len(data.Months))
	}

	jan := data.Months[0]
	if jan.Month != 1 {
		t.Fatalf("months should come in calendar order, got %d first", jan.Month)
	}
	if !jan.Total.Equal(dec("25")) {
		t.Fatalf("january total: got %s", jan.Total)
	}
	if len(jan.Details) != 2 || jan.Details[0].Detail != "mercado" {
		t.Fatalf("details should be desc by total, got %+v", jan.Details)
	}

	mar := data.Months[1]
	if mar.Month != 3 {
		t.Fatalf("second month: got %d", mar.Month)
	}
	if mar.Details[0].Detail != DetailPlaceholder {
		t.Fatalf("empty detail should use placeholder, got %q", mar.Details[0].Detail)
	}

	if !data.Max.Equal(dec("20")) {
		t.Fatalf("max per-detail total: got %s", data.Max)
	}
}

func TestBuildDrilldownExactSegmentMatch(t *testing.T) {
	seg := Segment{Kind: KindExpense, Fixed: false, Category: "Food"}
	data := BuildDrilldown(drilldownFixtures(), seg)

	if len(data.Months) != 1 {
		t.Fatalf("variable Food should have 1 month, got %d", len(data.Months))
	}
	if !data.Months[0].Total.Equal(dec("9")) {
		t.Fatalf("variable portion only: got %s", data.Months[0].Total)
	}
}

func TestBuildDrilldownEmptySegment(t *testing.T) {
	seg := Segment{Kind: KindIncome, Fixed: true, Category: "Food"}
	data := BuildDrilldown(drilldownFixtures(), seg)
	if len(data.Months) != 0 {
		t.Fatalf("non-matching segment should yield no months, got %d", len(data.Months))
	}
	if !data.Max.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("max floor: got %s", data.Max)
	}
}

func TestResolveSegment(t *testing.T) {
	chart := BuildChart(drilldownFixtures())

	live := &Segment{Kind: KindExpense, Fixed: true, Category: "Food"}
	if got := ResolveSegment(live, chart); got == nil {
		t.Fatalf("live segment should survive")
	}

	stale := &Segment{Kind: KindExpense, Fixed: true, Category: "Ocio"}
	if got := ResolveSegment(stale, chart); got != nil {
		t.Fatalf("stale segment should clear, got %+v", got)
	}

	if got := ResolveSegment(nil, chart); got != nil {
		t.Fatalf("nil selection should stay nil")
	}
}
