package registry

import (
	"slices"
	"strings"

	"github.com/samber/lo"
)

// Filter keeps entries matching keep. The input is not modified.
func Filter[T any](entries []Entry[T], keep func(T) bool) []Entry[T] {
	return lo.Filter(entries, func(e Entry[T], _ int) bool {
		return keep(e.Value)
	})
}

// Search matches query case-insensitively against the id and the fields
// returned by fields. An empty query matches everything.
func Search[T any](entries []Entry[T], query string, fields func(T) []string) []Entry[T] {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(entries)
	}
	return lo.Filter(entries, func(e Entry[T], _ int) bool {
		if strings.Contains(strings.ToLower(e.ID), q) {
			return true
		}
		if fields == nil {
			return false
		}
		return lo.ContainsBy(fields(e.Value), func(f string) bool {
			return strings.Contains(strings.ToLower(f), q)
		})
	})
}

// SortBy returns a stably sorted copy.
func SortBy[T any](entries []Entry[T], cmp func(a, b T) int) []Entry[T] {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry[T]) int {
		return cmp(a.Value, b.Value)
	})
	return out
}

// IDs extracts entry ids.
func IDs[T any](entries []Entry[T]) []string {
	return lo.Map(entries, func(e Entry[T], _ int) string { return e.ID })
}
