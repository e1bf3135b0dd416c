// Package worker mirrors movement writes into the configured
// spreadsheet, driven by sync messages from the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cuentas/internal/amqp"
	"cuentas/internal/core"
	applog "cuentas/internal/log"
	"cuentas/internal/sheets"
	"cuentas/internal/source"
	"cuentas/internal/storage"
)

// MovementStore is the slice of the repository the worker reads.
type MovementStore interface {
	GetMovementRecord(ctx context.Context, movementID string) (storage.MovementRecord, error)
	FetchCategories(ctx context.Context, bookID string) ([]map[string]any, error)
}

// SyncWorker consumes movement sync messages and mirrors the current
// row state into the exporter. The local row is always reloaded, so a
// stale or reordered message converges to the same result.
type SyncWorker struct {
	store    MovementStore
	exporter sheets.MovementExporter
}

func NewSyncWorker(store MovementStore, exporter sheets.MovementExporter) *SyncWorker {
	return &SyncWorker{store: store, exporter: exporter}
}

// HandleSyncMessage processes a single sync message. Returning an error
// requeues the message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.MovementSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"movement_id", msg.MovementID,
		"book_id", msg.BookID,
		"action", msg.Action,
		"version", msg.Version)

	if w.exporter == nil {
		slog.WarnContext(ctx, "No exporter configured, skipping",
			"movement_id", msg.MovementID)
		return nil
	}

	if msg.Action == amqp.ActionDelete {
		if err := w.exporter.Remove(ctx, msg.MovementID); err != nil {
			return fmt.Errorf("remove movement %s from sheet: %w", msg.MovementID, err)
		}
		return nil
	}

	record, err := w.store.GetMovementRecord(ctx, msg.MovementID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// The row vanished between publish and consume. Nothing to
			// mirror; dropping the message is the converged state.
			slog.WarnContext(ctx, "Movement no longer exists, skipping",
				"movement_id", msg.MovementID)
			return nil
		}
		return fmt.Errorf("load movement %s: %w", msg.MovementID, err)
	}
	if record.Deleted {
		if err := w.exporter.Remove(ctx, msg.MovementID); err != nil {
			return fmt.Errorf("remove deleted movement %s from sheet: %w", msg.MovementID, err)
		}
		return nil
	}

	rec, err := w.buildRecord(ctx, record)
	if err != nil {
		return err
	}

	// Updates re-mirror the row from scratch. Remove is a no-op when
	// the row was never appended.
	if msg.Action == amqp.ActionUpdate {
		if err := w.exporter.Remove(ctx, msg.MovementID); err != nil {
			return fmt.Errorf("remove outdated row for %s: %w", msg.MovementID, err)
		}
	}

	ref, err := w.exporter.Append(ctx, rec)
	if err != nil {
		return fmt.Errorf("append movement %s to sheet: %w", msg.MovementID, err)
	}

	fields := applog.NewFields().
		WithOperation(msg.Action).
		WithMovement(record.BookID, record.ID, record.Amount.String())
	fields[applog.FieldSheetsRef] = ref
	slog.InfoContext(ctx, "Movement mirrored", fields.ToSlice()...)
	return nil
}

// buildRecord denormalizes the stored movement into a spreadsheet row,
// resolving the kind and category name the same way the dashboard does.
func (w *SyncWorker) buildRecord(ctx context.Context, record storage.MovementRecord) (sheets.MovementRecord, error) {
	rawCategories, err := w.store.FetchCategories(ctx, record.BookID)
	if err != nil {
		return sheets.MovementRecord{}, fmt.Errorf("load categories of book %s: %w", record.BookID, err)
	}
	categories := source.BuildCategories(rawCategories)
	classified := core.ClassifyMovement(record.Movement, categories)

	return sheets.MovementRecord{
		MovementID: record.ID,
		BookID:     record.BookID,
		Date:       record.Date,
		Kind:       string(classified.Kind),
		Amount:     record.Amount.String(),
		Detail:     classified.DetailText,
		Fixed:      classified.FixedStrict(),
		Category:   classified.CategoryName,
	}, nil
}
