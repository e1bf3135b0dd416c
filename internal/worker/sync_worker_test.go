package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cuentas/internal/amqp"
	"cuentas/internal/core"
	"cuentas/internal/sheets"
	"cuentas/internal/storage"
)

type fakeStore struct {
	records    map[string]storage.MovementRecord
	categories []map[string]any
}

func (f *fakeStore) GetMovementRecord(_ context.Context, movementID string) (storage.MovementRecord, error) {
	rec, ok := f.records[movementID]
	if !ok {
		return storage.MovementRecord{}, storage.ErrNotFound
	}
	return rec, nil
}

func (f *fakeStore) FetchCategories(_ context.Context, _ string) ([]map[string]any, error) {
	return f.categories, nil
}

type fakeExporter struct {
	appended  []sheets.MovementRecord
	removed   []string
	appendErr error
	removeErr error
}

func (f *fakeExporter) Append(_ context.Context, rec sheets.MovementRecord) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	f.appended = append(f.appended, rec)
	return "Movimientos!A2:H2", nil
}

func (f *fakeExporter) Remove(_ context.Context, movementID string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, movementID)
	return nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records: map[string]storage.MovementRecord{
			"m1": {
				Movement: core.Movement{
					ID:         "m1",
					Date:       "2024-01-10",
					Amount:     decimal.RequireFromString("-20.5"),
					Detail:     "  Café  ",
					Fixed:      true,
					CategoryID: "hogar",
				},
				BookID:  "casa",
				Version: 1,
			},
			"gone": {
				Movement: core.Movement{ID: "gone", Date: "2024-02-01", Amount: decimal.RequireFromString("-5")},
				BookID:   "casa",
				Version:  3,
				Deleted:  true,
			},
		},
		categories: []map[string]any{
			{"id": "hogar", "nombre": "Hogar", "tipo": "gasto"},
		},
	}
}

func TestHandleSyncMessageCreate(t *testing.T) {
	store := newFakeStore()
	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter)

	msg := amqp.NewMovementSyncMessage("m1", "casa", amqp.ActionCreate, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	if len(exporter.removed) != 0 {
		t.Fatalf("create removed rows: %v", exporter.removed)
	}
	if len(exporter.appended) != 1 {
		t.Fatalf("len(appended) = %d, want 1", len(exporter.appended))
	}
	rec := exporter.appended[0]
	if rec.MovementID != "m1" || rec.BookID != "casa" {
		t.Fatalf("record identity = %+v", rec)
	}
	if rec.Kind != "expense" || rec.Category != "Hogar" {
		t.Fatalf("classification = kind %q, category %q", rec.Kind, rec.Category)
	}
	if rec.Amount != "-20.5" {
		t.Fatalf("amount = %q", rec.Amount)
	}
	if rec.Detail != "Café" {
		t.Fatalf("detail = %q", rec.Detail)
	}
	if !rec.Fixed {
		t.Fatal("fixed flag lost")
	}
}

func TestHandleSyncMessageUpdateReplacesRow(t *testing.T) {
	store := newFakeStore()
	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter)

	msg := amqp.NewMovementSyncMessage("m1", "casa", amqp.ActionUpdate, 0)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(exporter.removed) != 1 || exporter.removed[0] != "m1" {
		t.Fatalf("removed = %v", exporter.removed)
	}
	if len(exporter.appended) != 1 {
		t.Fatalf("len(appended) = %d, want 1", len(exporter.appended))
	}
}

func TestHandleSyncMessageDelete(t *testing.T) {
	store := newFakeStore()
	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter)

	msg := amqp.NewMovementSyncMessage("m1", "casa", amqp.ActionDelete, 0)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(exporter.removed) != 1 || exporter.removed[0] != "m1" {
		t.Fatalf("removed = %v", exporter.removed)
	}
	if len(exporter.appended) != 0 {
		t.Fatalf("delete appended rows: %v", exporter.appended)
	}
}

func TestHandleSyncMessageSoftDeletedRecord(t *testing.T) {
	store := newFakeStore()
	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter)

	// A create message racing a delete: the reloaded row is already
	// soft deleted, so the worker removes instead of appending.
	msg := amqp.NewMovementSyncMessage("gone", "casa", amqp.ActionCreate, 3)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(exporter.removed) != 1 || exporter.removed[0] != "gone" {
		t.Fatalf("removed = %v", exporter.removed)
	}
	if len(exporter.appended) != 0 {
		t.Fatalf("appended = %v", exporter.appended)
	}
}

func TestHandleSyncMessageMissingRecordSkipped(t *testing.T) {
	store := newFakeStore()
	exporter := &fakeExporter{}
	w := NewSyncWorker(store, exporter)

	msg := amqp.NewMovementSyncMessage("nope", "casa", amqp.ActionCreate, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
	if len(exporter.appended) != 0 || len(exporter.removed) != 0 {
		t.Fatal("missing record should not touch the exporter")
	}
}

func TestHandleSyncMessageExporterFailureRequeues(t *testing.T) {
	store := newFakeStore()
	exporter := &fakeExporter{appendErr: errors.New("quota exceeded")}
	w := NewSyncWorker(store, exporter)

	msg := amqp.NewMovementSyncMessage("m1", "casa", amqp.ActionCreate, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error when exporter fails")
	}
}

func TestHandleSyncMessageNoExporter(t *testing.T) {
	w := NewSyncWorker(newFakeStore(), nil)
	msg := amqp.NewMovementSyncMessage("m1", "casa", amqp.ActionCreate, 1)
	if err := w.HandleSyncMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}
}
