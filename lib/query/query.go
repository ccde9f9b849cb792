package query

import (
	"cmp"
	"slices"
)

// Filter returns the items for which keep returns true, in input order.
// The result is never nil.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0)
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// SortBy returns a sorted copy of items. The sort is stable: items with equal keys
// keep their input order (in both directions).
func SortBy[T any, K cmp.Ordered](items []T, key func(T) K, ascending bool) []T {
	out := slices.Clone(items)
	if out == nil {
		out = make([]T, 0)
	}
	slices.SortStableFunc(out, func(a, b T) int {
		c := cmp.Compare(key(a), key(b))
		if !ascending {
			c = -c
		}
		return c
	})
	return out
}

// CountBy groups the items by key and counts the members of each group.
func CountBy[T any, K comparable](items []T, key func(T) K) map[K]uint64 {
	counts := make(map[K]uint64)
	for _, item := range items {
		counts[key(item)]++
	}
	return counts
}

// MaxByCount returns the key with the highest count. Ties go to the smallest key.
// The boolean is false for an empty map.
func MaxByCount[K cmp.Ordered](counts map[K]uint64) (K, bool) {
	return extremeByCount(counts, func(count, best uint64) bool { return count > best })
}

// MinByCount returns the key with the lowest count. Ties go to the smallest key.
// The boolean is false for an empty map.
func MinByCount[K cmp.Ordered](counts map[K]uint64) (K, bool) {
	return extremeByCount(counts, func(count, best uint64) bool { return count < best })
}

func extremeByCount[K cmp.Ordered](counts map[K]uint64, better func(count, best uint64) bool) (K, bool) {
	var (
		bestKey   K
		bestCount uint64
		found     bool
	)
	for key, count := range counts {
		if !found || better(count, bestCount) || (count == bestCount && key < bestKey) {
			bestKey, bestCount, found = key, count, true
		}
	}
	return bestKey, found
}

// RangeBy returns the items whose field lies in [lo, hi], in input order.
// If lo > hi the result is empty.
func RangeBy[T any, V cmp.Ordered](items []T, field func(T) V, lo, hi V) []T {
	if lo > hi {
		return make([]T, 0)
	}
	return Filter(items, func(item T) bool {
		v := field(item)
		return v >= lo && v <= hi
	})
}

// Distinct returns every key once, sorted ascending. The result is never nil.
func Distinct[T any, K cmp.Ordered](items []T, key func(T) K) []K {
	seen := make(map[K]struct{})
	out := make([]K, 0)
	for _, item := range items {
		k := key(item)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// MaxOf returns the largest field value. The boolean is false for empty input.
func MaxOf[T any, V cmp.Ordered](items []T, field func(T) V) (V, bool) {
	var best V
	if len(items) == 0 {
		return best, false
	}
	best = field(items[0])
	for _, item := range items[1:] {
		if v := field(item); v > best {
			best = v
		}
	}
	return best, true
}
