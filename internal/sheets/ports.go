// Package sheets defines the exporter port the sync worker mirrors
// movements through.
package sheets

import "context"

// MovementRecord is one spreadsheet row. Amount is the signed decimal
// string exactly as stored; the sheet carries it verbatim.
type MovementRecord struct {
	MovementID string
	BookID     string
	Date       string
	Kind       string
	Amount     string
	Detail     string
	Fixed      bool
	Category   string
}

// MovementExporter mirrors movements into an external spreadsheet. The
// movement id lands in the first column so Remove can find the row
// again.
type MovementExporter interface {
	// Append adds one row and returns a reference to where it landed.
	Append(ctx context.Context, rec MovementRecord) (string, error)
	// Remove deletes the row carrying the movement id. Removing an id
	// that is not present is not an error.
	Remove(ctx context.Context, movementID string) error
}
