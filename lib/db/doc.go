// Package db provides a standardized interface for key-value database implementations.
// It defines the KVDB interface that the record store uses as its durable substrate,
// abstracting the concrete engine behind a small set of ordered-map operations.
//
// The package focuses on:
//   - A unified interface for key-value operations
//   - Feature discovery through capability flags
//   - Standardized persistence operations
//   - Metadata reporting
//
// Key Components:
//
//   - KVDB Interface: The core interface that all database implementations must satisfy.
//     It provides methods for basic operations (Set, Get, Has, Delete), atomic batches
//     (Apply), ordered prefix scans (Scan), metadata retrieval (GetInfo) and
//     persistence operations (Save, Load).
//
//   - Feature Flags: The Feature type defines capability flags that implementations
//     can advertise through the SupportsFeature method. FeatureDurable marks engines
//     whose writes survive a restart on their own, everything else needs Save/Load.
//
//   - Implementation Identifiers: The Implementation type provides string constants
//     for the database backends ("maple" and "lite").
//
//   - Database Information: The DatabaseInfo structure provides standardized
//     reporting on database state, including size statistics, implementation type,
//     and implementation-specific metadata. Note: For most implementations all
//     size statistics will be estimated since a precise calculation can be
//     expensive.
//
// Note on Write Indexes:
//   - All write operations require a write-index parameter that serves as a logical
//     timestamp. Writes carrying an index lower than the one already stored for a key
//     are ignored, which makes replays (e.g. from a RAFT log) idempotent.
//   - Monotonicity Guarantee: All implementations must ensure that the write-index only
//     increases monotonically. Attempts to set a write-index lower than the current one
//     must be ignored.
//
// Note on Ordering:
//   - Scan must visit keys in ascending byte order. The record store encodes numeric ids
//     as fixed width decimal strings, so key order equals id order.
//
// Related Packages:
//
// The engines/maple package provides a sharded in-memory implementation,
// engines/lite a durable SQLite implementation. The testing package provides a
// conformance suite (RunKVDBTests) and benchmarks (RunKVDBBenchmarks) every engine runs.
package db
