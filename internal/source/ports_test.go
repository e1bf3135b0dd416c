package source

import (
	"testing"

	"cuentas/internal/core"
)

func TestCategoryFromRecord(t *testing.T) {
	cat := CategoryFromRecord(map[string]any{
		"id":     "c1",
		"nombre": " Hogar ",
		"tipo":   "gasto",
		"color":  "#fff",
	})
	if cat.ID != "c1" {
		t.Fatalf("id: got %q", cat.ID)
	}
	if cat.Name != "Hogar" {
		t.Fatalf("name should be trimmed: got %q", cat.Name)
	}
	if cat.Kind != core.KindExpense {
		t.Fatalf("kind: got %q", cat.Kind)
	}
	if cat.Raw == nil {
		t.Fatalf("raw record should be kept")
	}
}

func TestCategoryFromRecordAlternateKeys(t *testing.T) {
	cat := CategoryFromRecord(map[string]any{
		"uuid":  "x9",
		"title": "Salary",
		"kind":  "income",
	})
	if cat.ID != "x9" || cat.Name != "Salary" || cat.Kind != core.KindIncome {
		t.Fatalf("got %+v", cat)
	}
}

func TestBuildCategories(t *testing.T) {
	records := []map[string]any{
		{"id": "c1", "nombre": "Hogar", "tipo": "gasto"},
		{"nombre": "Extra"}, // no id: keyed by name
		{"color": "#000"},   // neither id nor name: dropped
	}
	cats := BuildCategories(records)
	if len(cats) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cats))
	}
	if _, ok := cats["c1"]; !ok {
		t.Fatalf("c1 missing: %+v", cats)
	}
	extra, ok := cats["Extra"]
	if !ok {
		t.Fatalf("name-keyed category missing: %+v", cats)
	}
	if extra.ID != "Extra" {
		t.Fatalf("fallback key should become the id, got %q", extra.ID)
	}
}
