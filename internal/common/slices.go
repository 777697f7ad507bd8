package common

import (
	"cmp"
	"slices"
)

// FilterEmpty returns a new slice containing only the non-zero values from the input.
func FilterEmpty[T comparable](items ...T) []T {
	result := make([]T, 0, len(items))
	var zero T
	for _, item := range items {
		if item != zero {
			result = append(result, item)
		}
	}
	return result
}

// SortedUnique returns a sorted copy of items with duplicates removed.
// The input slice is left untouched.
func SortedUnique[T cmp.Ordered](items []T) []T {
	result := slices.Clone(items)
	slices.Sort(result)
	return slices.Compact(result)
}
