package core

import (
	"sort"
	"strings"
)

// CategoryAll is the sentinel that bypasses category filtering.
const CategoryAll = "all"

// FilterOptions are the UI filter parameters applied to a classified
// movement set. Both toggles off yields an empty result, not an error.
type FilterOptions struct {
	ShowFixed    bool
	ShowVariable bool
	Category     string
	Search       string
}

// ApplyFilters runs the fixed/variable toggles, category selection and
// free-text search over rows, returning a new slice in input order. The
// formatter supplies the locale number and currency renderings the
// search haystack needs.
func ApplyFilters(rows []Classified, opts FilterOptions, f Formatter) []Classified {
	out := make([]Classified, 0, len(rows))

	category := opts.Category
	if category == "" {
		category = CategoryAll
	}
	query := NormalizeSearchText(opts.Search)

	for _, c := range rows {
		if !passesFixedToggle(c, opts) {
			continue
		}
		if category != CategoryAll && c.CategoryName != category {
			continue
		}
		if query != "" && !matchesSearch(c, query, f) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func passesFixedToggle(c Classified, opts FilterOptions) bool {
	if c.FixedStrict() {
		return opts.ShowFixed
	}
	return opts.ShowVariable
}

// matchesSearch tests normalized substring containment against the
// concatenation of category, detail and the magnitude rendered both as
// a plain localized number and as currency, so the query matches
// whether the user typed "1.234,56" or "€ 1.234,56".
func matchesSearch(c Classified, normalizedQuery string, f Formatter) bool {
	haystack := NormalizeSearchText(strings.Join([]string{
		c.CategoryName,
		c.DetailText,
		f.Number(c.Magnitude),
		f.Currency(c.Magnitude),
	}, " "))
	return strings.Contains(haystack, normalizedQuery)
}

// CategoryOptions returns the distinct category names present in rows,
// sorted for a stable selector, always headed by the "all" sentinel.
func CategoryOptions(rows []Classified) []string {
	seen := make(map[string]struct{})
	for _, c := range rows {
		seen[c.CategoryName] = struct{}{}
	}
	names := make([]string, 0, len(seen)+1)
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{CategoryAll}, names...)
}

// ResolveCategorySelection self-heals a stale selection: when the
// previously selected category is no longer available it resets to the
// "all" sentinel instead of keeping a filter that silently matches
// nothing.
func ResolveCategorySelection(selected string, available []string) string {
	if selected == "" || selected == CategoryAll {
		return CategoryAll
	}
	for _, name := range available {
		if name == selected {
			return selected
		}
	}
	return CategoryAll
}
