// Package util provides utility components for
// database implementations that satisfy the db.KVDB interface.
//
// The package contains:
//   - stats: size histograms and distribution statistics (backed by go-metrics) used for GetInfo
//   - snapshot: the binary snapshot format shared by all engines for Save and Load
//   - functions: hash functions, seeds and key range helpers
package util
