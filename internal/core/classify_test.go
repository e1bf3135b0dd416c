package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestClassifyScenarioTotals(t *testing.T) {
	movements := []Movement{
		{ID: "1", Date: "2024-01-15", RawKind: "ingreso", Amount: dec("100"), Fixed: true, CategoryID: "c1"},
		{ID: "2", Date: "2024-01-20", RawKind: "gasto", Amount: dec("40"), Fixed: false, CategoryID: "c2"},
	}
	categories := map[string]Category{
		"c1": {ID: "c1", Name: "Salary", Kind: KindIncome},
		"c2": {ID: "c2", Name: "Food", Kind: KindExpense},
	}

	set := Classify(movements, categories)
	if len(set.Income) != 1 || len(set.Expense) != 1 {
		t.Fatalf("expected 1/1 partition, got %d/%d", len(set.Income), len(set.Expense))
	}

	totals := set.Totals()
	if !totals.Income.Equal(dec("100")) {
		t.Fatalf("income total: got %s", totals.Income)
	}
	if !totals.Expense.Equal(dec("40")) {
		t.Fatalf("expense total: got %s", totals.Expense)
	}
	if !totals.Balance.Equal(dec("60")) {
		t.Fatalf("balance: got %s", totals.Balance)
	}
}

func TestClassifyDefaults(t *testing.T) {
	m := Movement{ID: "1", Amount: dec("-12.5"), Detail: "  taxi  "}
	c := ClassifyMovement(m, nil)

	if c.Kind != KindExpense {
		t.Fatalf("negative amount should classify as expense, got %q", c.Kind)
	}
	if !c.Magnitude.Equal(dec("12.5")) {
		t.Fatalf("magnitude should be absolute: got %s", c.Magnitude)
	}
	if c.CategoryName != UncategorizedName {
		t.Fatalf("expected %q fallback, got %q", UncategorizedName, c.CategoryName)
	}
	if c.DetailText != "taxi" {
		t.Fatalf("detail should be trimmed: got %q", c.DetailText)
	}
}

func TestClassifyEmptyCategoryNameFallsBack(t *testing.T) {
	categories := map[string]Category{
		"c1": {ID: "c1", Name: "   ", Kind: KindExpense},
	}
	c := ClassifyMovement(Movement{ID: "1", Amount: dec("5"), CategoryID: "c1"}, categories)
	if c.CategoryName != UncategorizedName {
		t.Fatalf("blank category name should fall back, got %q", c.CategoryName)
	}
	if c.Kind != KindExpense {
		t.Fatalf("category kind should still apply, got %q", c.Kind)
	}
}

func TestClassifyPartitionOrder(t *testing.T) {
	movements := []Movement{
		{ID: "1", RawKind: "gasto", Amount: dec("10")},
		{ID: "2", RawKind: "gasto", Amount: dec("30")},
		{ID: "3", RawKind: "gasto", Amount: dec("20")},
	}
	set := Classify(movements, nil)
	if len(set.Expense) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(set.Expense))
	}
	want := []string{"2", "3", "1"}
	for i, id := range want {
		if set.Expense[i].ID != id {
			t.Fatalf("position %d: got id %q want %q", i, set.Expense[i].ID, id)
		}
	}
}

func TestClassifyZeroAmountListedButNotTotaled(t *testing.T) {
	movements := []Movement{
		{ID: "1", Amount: decimal.Decimal{}},
		{ID: "2", RawKind: "ingreso", Amount: dec("10")},
	}
	set := Classify(movements, nil)
	// Zero amount still appears, classified as income (non-negative default).
	if len(set.Income) != 2 {
		t.Fatalf("zero-amount movement should remain listed, got %d income rows", len(set.Income))
	}
	if !set.Totals().Income.Equal(dec("10")) {
		t.Fatalf("zero amounts must not change totals: got %s", set.Totals().Income)
	}
}
