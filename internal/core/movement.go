package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedName is the display name used when a movement has no
// resolvable category.
const UncategorizedName = "Sin categoría"

type (
	// Movement is a raw financial movement as fetched from the store.
	// Fields mirror the remote schema: Date is a date-like string,
	// RawKind is the free-text "tipo" column, and Fixed carries whatever
	// encoding the source used for the recurring flag (bool, 0/1, "t").
	Movement struct {
		ID         string
		Date       string
		RawKind    string
		Amount     decimal.Decimal
		Detail     string
		Fixed      any
		CategoryID string
	}

	// Category is a category after its kind has been resolved from the
	// open record returned by the category source. Raw keeps the record
	// around for display fallbacks.
	Category struct {
		ID   string
		Name string
		Kind Kind
		Raw  map[string]any
	}

	// Book is a ledger a user may have permission to.
	Book struct {
		ID       string
		Name     string
		Currency string
	}
)

var movementDateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"02/01/2006",
}

// Time parses the movement date. Malformed dates return the zero time,
// which sorts as epoch and never drops the movement from listings.
func (m Movement) Time() time.Time {
	s := strings.TrimSpace(m.Date)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range movementDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Year returns the calendar year of the movement, 0 if unparseable.
func (m Movement) Year() int {
	t := m.Time()
	if t.IsZero() {
		return 0
	}
	return t.Year()
}

// Month returns the calendar month (1-12), 0 if unparseable.
func (m Movement) Month() int {
	t := m.Time()
	if t.IsZero() {
		return 0
	}
	return int(t.Month())
}

// FixedStrict reports whether the movement is fixed under the strict
// interpretation: only boolean true counts, anything else is variable.
// This is the check used by the classifier and the filter engine.
func (m Movement) FixedStrict() bool {
	b, ok := m.Fixed.(bool)
	return ok && b
}

// FixedLoose reports whether the movement is fixed under the tolerant
// interpretation used by the yearly pivot, which ingests less curated
// historical rows: boolean true, numeric 1, "1", "t" and "true"
// (case-insensitive) all count as fixed.
func (m Movement) FixedLoose() bool {
	switch v := m.Fixed.(type) {
	case bool:
		return v
	case int:
		return v == 1
	case int64:
		return v == 1
	case float64:
		return v == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "t" || s == "true"
	default:
		return false
	}
}

// CurrencyOrDefault returns the book currency code, falling back to EUR
// when the book has none configured.
func (b Book) CurrencyOrDefault() string {
	if strings.TrimSpace(b.Currency) == "" {
		return "EUR"
	}
	return b.Currency
}
