package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Defaults applied when a book carries no locale/currency of its own.
const (
	DefaultLocale   = "es"
	DefaultCurrency = "EUR"
)

// Formatter renders amounts as localized plain numbers and currency
// strings. Locale and currency are always passed in explicitly; there
// is no ambient global state.
type Formatter struct {
	printer *message.Printer
	unit    currency.Unit
}

// NewFormatter builds a formatter for the given BCP 47 locale and ISO
// 4217 currency code. Unknown or empty values fall back to the Spanish
// locale and EUR.
func NewFormatter(locale, currencyCode string) Formatter {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil || locale == "" {
		tag = language.MustParse(DefaultLocale)
	}
	unit, err := currency.ParseISO(strings.TrimSpace(currencyCode))
	if err != nil {
		unit = currency.EUR
	}
	return Formatter{
		printer: message.NewPrinter(tag),
		unit:    unit,
	}
}

// Number renders the amount as a localized plain number with two
// decimal places (e.g. "1.234,56" under the Spanish locale).
func (f Formatter) Number(d decimal.Decimal) string {
	return f.printer.Sprintf("%v", number.Decimal(d.InexactFloat64(),
		number.Scale(2)))
}

// Currency renders the amount with the currency symbol (e.g. "€ 1.234,56").
func (f Formatter) Currency(d decimal.Decimal) string {
	return f.printer.Sprintf("%v", currency.Symbol(f.unit.Amount(d.InexactFloat64())))
}

// NormalizeSearchText lower-cases, strips diacritics (combining marks)
// and collapses internal whitespace. Both the query and every haystack
// field go through this before substring matching, so "cafe" matches
// "Café".
func NormalizeSearchText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(stripper, s); err == nil {
		s = stripped
	}
	return strings.Join(strings.Fields(s), " ")
}
