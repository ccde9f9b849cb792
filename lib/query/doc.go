// Package query provides read-only derivations over a snapshot of records: filters,
// stable sorts, group counts, extremes and inclusive ranges.
//
// None of the functions mutates its input, and none keeps state between calls, so the
// same snapshot (e.g. record.Store.List) can be queried any number of times. Results that
// are collections are never nil. Extremes of group counts break ties by the smallest
// key, which makes them independent of map iteration order.
package query
