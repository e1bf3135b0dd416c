package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func allOn() PivotOptions {
	return PivotOptions{ShowIncome: true, ShowExpense: true, ShowFixed: true, ShowVariable: true}
}

func pivotCategories() map[string]Category {
	return map[string]Category{
		"rent": {ID: "rent", Name: "Rent", Kind: KindIncome},
		"food": {ID: "food", Name: "Food", Kind: KindExpense},
	}
}

func TestBuildPivotMultiYearSeries(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "2023-05-01", Amount: dec("100"), Fixed: true, CategoryID: "rent"},
		{ID: "2", Date: "2024-05-01", Amount: dec("120"), Fixed: true, CategoryID: "rent"},
		{ID: "3", Date: "2024-02-10", RawKind: "gasto", Amount: dec("40"), CategoryID: "food"},
	}

	p := BuildPivot(movements, pivotCategories(), allOn())
	if p.Empty != EmptyNone {
		t.Fatalf("unexpected empty state %q", p.Empty)
	}
	if len(p.Years) != 2 || p.Years[0] != 2023 || p.Years[1] != 2024 {
		t.Fatalf("years: got %v", p.Years)
	}

	if len(p.Categories) != 2 || p.Categories[0].Name != "Rent" {
		t.Fatalf("ranking: got %+v", p.Categories)
	}
	rent := p.Categories[0]
	if !rent.IncomeFixed[2023].Equal(dec("100")) || !rent.IncomeFixed[2024].Equal(dec("120")) {
		t.Fatalf("rent series: got %v", rent.IncomeFixed)
	}
	if !rent.Total.Equal(dec("220")) {
		t.Fatalf("rent total: got %s", rent.Total)
	}

	if got := p.TotalsByYear[2024]; !got.Total.Equal(dec("160")) {
		t.Fatalf("2024 totals: got %+v", got)
	}
	if !p.GrandTotal.Total.Equal(dec("260")) {
		t.Fatalf("grand total: got %s", p.GrandTotal.Total)
	}
	if !p.Max.Equal(dec("120")) {
		t.Fatalf("max cell: got %s", p.Max)
	}
}

func TestBuildPivotTogglesPrune(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "2024-05-01", Amount: dec("120"), Fixed: true, CategoryID: "rent"},
		{ID: "2", Date: "2024-02-10", RawKind: "gasto", Amount: dec("40"), CategoryID: "food"},
	}

	opts := allOn()
	opts.ShowIncome = false
	p := BuildPivot(movements, pivotCategories(), opts)

	if len(p.Categories) != 1 || p.Categories[0].Name != "Food" {
		t.Fatalf("income-off pivot should keep only expense rows, got %+v", p.Categories)
	}
	if !p.GrandTotal.Total.Equal(dec("40")) {
		t.Fatalf("grand total under toggle: got %s", p.GrandTotal.Total)
	}
}

func TestBuildPivotEmptyStates(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "2024-05-01", Amount: dec("120"), CategoryID: "rent"},
	}

	opts := allOn()
	opts.ShowIncome = false
	opts.ShowExpense = false
	if p := BuildPivot(movements, pivotCategories(), opts); p.Empty != EmptyFiltered {
		t.Fatalf("both kind toggles off: got %q", p.Empty)
	}

	opts = allOn()
	opts.ShowFixed = false
	opts.ShowVariable = false
	if p := BuildPivot(movements, pivotCategories(), opts); p.Empty != EmptyFiltered {
		t.Fatalf("both fixed toggles off: got %q", p.Empty)
	}

	if p := BuildPivot(nil, nil, allOn()); p.Empty != EmptyNoData {
		t.Fatalf("no movements: got %q", p.Empty)
	}

	opts = allOn()
	opts.Year = 1999
	if p := BuildPivot(movements, pivotCategories(), opts); p.Empty != EmptyNoData {
		t.Fatalf("year with no rows: got %q", p.Empty)
	}
}

func TestBuildPivotTolerantFixedEncodings(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "2024-01-01", RawKind: "gasto", Amount: dec("10"), Fixed: "1", CategoryID: "food"},
		{ID: "2", Date: "2024-01-02", RawKind: "gasto", Amount: dec("10"), Fixed: "t", CategoryID: "food"},
		{ID: "3", Date: "2024-01-03", RawKind: "gasto", Amount: dec("10"), Fixed: 1, CategoryID: "food"},
		{ID: "4", Date: "2024-01-04", RawKind: "gasto", Amount: dec("10"), Fixed: "no", CategoryID: "food"},
	}

	p := BuildPivot(movements, pivotCategories(), allOn())
	food := p.Categories[0]
	if !food.TotalFixed.Equal(dec("30")) {
		t.Fatalf("historical truthy encodings should count as fixed: got %s", food.TotalFixed)
	}
	if !food.TotalVariable.Equal(dec("10")) {
		t.Fatalf("non-truthy encoding should stay variable: got %s", food.TotalVariable)
	}
}

func TestBuildPivotNarrowing(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "2024-01-01", RawKind: "gasto", Amount: dec("10"), CategoryID: "food", Detail: "Café con leche"},
		{ID: "2", Date: "2024-01-02", RawKind: "gasto", Amount: dec("20"), CategoryID: "food", Detail: "mercado"},
		{ID: "3", Date: "2023-01-02", Amount: dec("99"), CategoryID: "rent"},
	}

	opts := allOn()
	opts.Category = "Food"
	opts.Detail = "cafe"
	p := BuildPivot(movements, pivotCategories(), opts)

	if len(p.Categories) != 1 {
		t.Fatalf("narrowed pivot rows: got %d", len(p.Categories))
	}
	if !p.Categories[0].Total.Equal(dec("10")) {
		t.Fatalf("diacritic-insensitive detail narrowing: got %s", p.Categories[0].Total)
	}
	if len(p.Years) != 1 || p.Years[0] != 2024 {
		t.Fatalf("years after narrowing: got %v", p.Years)
	}
}

func TestBuildPivotSkipsUnparseableDates(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "not-a-date", Amount: dec("50"), CategoryID: "rent"},
		{ID: "2", Date: "2024-01-01", Amount: dec("10"), CategoryID: "rent"},
	}
	p := BuildPivot(movements, pivotCategories(), allOn())
	if !p.GrandTotal.Total.Equal(dec("10")) {
		t.Fatalf("rows without a parseable year must be skipped, got %s", p.GrandTotal.Total)
	}
}

func TestBuildPivotMaxFloor(t *testing.T) {
	p := BuildPivot(nil, nil, allOn())
	if !p.Max.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("max floor: got %s", p.Max)
	}
}
