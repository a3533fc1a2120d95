// Package filter implements gallery search: a case-insensitive substring
// match over a fixed set of text fields per entry.
package filter

import "strings"

// Searchable is implemented by entries that expose their searchable fields.
type Searchable interface {
	SearchFields() []string
}

// Match reports whether query occurs, ignoring case, in at least one field.
// A blank query matches everything.
func Match(query string, fields ...string) bool {
	q := fold(query)
	return q == "" || matchFolded(q, fields)
}

// Filter returns the entries of items whose fields match query, in their
// original order. items is never modified; the result is always a new slice.
func Filter[T any](items []T, query string, fields func(T) []string) []T {
	out := make([]T, 0, len(items))
	q := fold(query)
	for _, it := range items {
		if q == "" || matchFolded(q, fields(it)) {
			out = append(out, it)
		}
	}
	return out
}

// Entries filters items by their own SearchFields.
func Entries[T Searchable](items []T, query string) []T {
	return Filter(items, query, func(it T) []string { return it.SearchFields() })
}

func matchFolded(q string, fields []string) bool {
	for _, f := range fields {
		if strings.Contains(fold(f), q) {
			return true
		}
	}
	return false
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
