package models

import "strings"

// Ptr returns a pointer to v, for building update patches.
func Ptr[T any](v T) *T {
	return &v
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), b)
}
