package source

import (
	"context"
	"strings"

	"cuentas/internal/core"
)

// Ports for movement data providers. The HTTP layer and the dashboard
// service depend on these, never on a concrete store.
type (
	// MovementSource fetches the movements of a book. Year 0 means the
	// full history (the yearly pivot needs every year at once).
	MovementSource interface {
		FetchMovements(ctx context.Context, bookID string, year int) ([]core.Movement, error)
	}

	// CategorySource returns the raw category records of a book. The
	// records are open maps because the remote schema is not fixed;
	// kind resolution happens in core.
	CategorySource interface {
		FetchCategories(ctx context.Context, bookID string) ([]map[string]any, error)
	}

	// BookSource lists the books a user has been granted access to.
	BookSource interface {
		FetchBooks(ctx context.Context, userID string) ([]core.Book, error)
	}

	// MovementWriter mutates a book's movements. Deletes are soft.
	MovementWriter interface {
		CreateMovement(ctx context.Context, bookID string, m core.Movement) error
		UpdateMovement(ctx context.Context, bookID string, m core.Movement) error
		DeleteMovement(ctx context.Context, bookID, movementID string) error
	}
)

var idKeys = []string{"id", "_id", "uuid", "codigo"}

var nameKeys = []string{"nombre", "name", "categoria", "category", "titulo", "title", "label"}

// CategoryFromRecord builds a resolved category from an open record.
// ID and display name come from the first matching well-known key; the
// kind is resolved heuristically from the whole record.
func CategoryFromRecord(record map[string]any) core.Category {
	cat := core.Category{
		Kind: core.ResolveCategoryKind(record),
		Raw:  record,
	}
	for _, key := range idKeys {
		if v, ok := record[key].(string); ok && strings.TrimSpace(v) != "" {
			cat.ID = strings.TrimSpace(v)
			break
		}
	}
	for _, key := range nameKeys {
		if v, ok := record[key].(string); ok && strings.TrimSpace(v) != "" {
			cat.Name = strings.TrimSpace(v)
			break
		}
	}
	return cat
}

// BuildCategories indexes raw records by category ID, falling back to
// the name when a record carries no ID. Records with neither are
// dropped: nothing could ever reference them.
func BuildCategories(records []map[string]any) map[string]core.Category {
	out := make(map[string]core.Category, len(records))
	for _, record := range records {
		cat := CategoryFromRecord(record)
		key := cat.ID
		if key == "" {
			key = cat.Name
		}
		if key == "" {
			continue
		}
		if cat.ID == "" {
			cat.ID = key
		}
		out[key] = cat
	}
	return out
}
