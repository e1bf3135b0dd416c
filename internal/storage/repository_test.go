package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"cuentas/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "cuentas.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestRepositoryBooksAndPermissions(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateBook(ctx, core.Book{ID: "b1", Name: "Casa", Currency: "EUR"}, "ana"); err != nil {
		t.Fatalf("create book: %v", err)
	}
	if err := repo.CreateBook(ctx, core.Book{ID: "b2", Name: "Viajes"}, "ana", "luis"); err != nil {
		t.Fatalf("create book: %v", err)
	}

	books, err := repo.FetchBooks(ctx, "luis")
	if err != nil {
		t.Fatalf("fetch books: %v", err)
	}
	if len(books) != 1 || books[0].ID != "b2" {
		t.Fatalf("luis should see only b2, got %+v", books)
	}
	if books[0].Currency != "EUR" {
		t.Fatalf("default currency should be stored, got %q", books[0].Currency)
	}
}

func TestRepositoryMovementLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateBook(ctx, core.Book{ID: "b1", Name: "Casa"}, "ana"); err != nil {
		t.Fatalf("create book: %v", err)
	}

	m := core.Movement{
		ID:         "m1",
		Date:       "2024-03-01",
		RawKind:    "gasto",
		Amount:     decimal.RequireFromString("-12.50"),
		Detail:     "taxi",
		Fixed:      true,
		CategoryID: "transporte",
	}
	if err := repo.CreateMovement(ctx, "b1", m); err != nil {
		t.Fatalf("create movement: %v", err)
	}

	got, err := repo.FetchMovements(ctx, "b1", 2024)
	if err != nil {
		t.Fatalf("fetch movements: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 movement, got %d", len(got))
	}
	if !got[0].Amount.Equal(m.Amount) {
		t.Fatalf("amount round-trip: got %s", got[0].Amount)
	}
	if got[0].Fixed != any(true) {
		t.Fatalf("fixed should decode to bool, got %#v", got[0].Fixed)
	}

	if rows, _ := repo.FetchMovements(ctx, "b1", 1999); len(rows) != 0 {
		t.Fatalf("year scoping failed")
	}

	m.Detail = "taxi aeropuerto"
	if err := repo.UpdateMovement(ctx, "b1", m); err != nil {
		t.Fatalf("update movement: %v", err)
	}
	rec, err := repo.GetMovementRecord(ctx, "m1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if rec.Version != 2 {
		t.Fatalf("version should bump on update, got %d", rec.Version)
	}
	if rec.BookID != "b1" || rec.Deleted {
		t.Fatalf("record bookkeeping: %+v", rec)
	}

	if err := repo.DeleteMovement(ctx, "b1", "m1"); err != nil {
		t.Fatalf("delete movement: %v", err)
	}
	if rows, _ := repo.FetchMovements(ctx, "b1", 0); len(rows) != 0 {
		t.Fatalf("soft-deleted movement should not be listed")
	}
	rec, err = repo.GetMovementRecord(ctx, "m1")
	if err != nil {
		t.Fatalf("get record after delete: %v", err)
	}
	if !rec.Deleted {
		t.Fatalf("record should be marked deleted")
	}

	if err := repo.DeleteMovement(ctx, "b1", "m1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should report not found, got %v", err)
	}
}

func TestRepositoryLegacyFixedEncoding(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateBook(ctx, core.Book{ID: "b1", Name: "Casa"}, "ana"); err != nil {
		t.Fatalf("create book: %v", err)
	}
	m := core.Movement{ID: "m1", Date: "2020-01-01", Amount: decimal.RequireFromString("5"), Fixed: "t"}
	if err := repo.CreateMovement(ctx, "b1", m); err != nil {
		t.Fatalf("create movement: %v", err)
	}

	got, err := repo.FetchMovements(ctx, "b1", 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got[0].Fixed != any("t") {
		t.Fatalf("legacy encoding should survive the round trip, got %#v", got[0].Fixed)
	}
	if !got[0].FixedLoose() {
		t.Fatalf("legacy encoding should still count as fixed for the pivot")
	}
	if got[0].FixedStrict() {
		t.Fatalf("legacy encoding must not count as fixed for the strict check")
	}
}

func TestRepositoryCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateBook(ctx, core.Book{ID: "b1", Name: "Casa"}, "ana"); err != nil {
		t.Fatalf("create book: %v", err)
	}
	record := map[string]any{"id": "hogar", "nombre": "Hogar", "tipo": "gasto"}
	if err := repo.UpsertCategory(ctx, "b1", "hogar", record); err != nil {
		t.Fatalf("upsert category: %v", err)
	}

	records, err := repo.FetchCategories(ctx, "b1")
	if err != nil {
		t.Fatalf("fetch categories: %v", err)
	}
	if len(records) != 1 || records[0]["nombre"] != "Hogar" {
		t.Fatalf("records: %+v", records)
	}

	record["nombre"] = "Hogar y jardín"
	if err := repo.UpsertCategory(ctx, "b1", "hogar", record); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	records, _ = repo.FetchCategories(ctx, "b1")
	if len(records) != 1 || records[0]["nombre"] != "Hogar y jardín" {
		t.Fatalf("upsert should replace, got %+v", records)
	}
}
