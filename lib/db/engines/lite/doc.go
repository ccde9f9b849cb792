// Package lite provides a durable implementation of the db.KVDB interface on top of
// SQLite (modernc.org/sqlite, no cgo).
//
// All entries live in one table keyed by the entry key, so ordered prefix scans map to a
// range query on the primary key. Each write (Set, Delete, Apply) runs in its own
// transaction together with the update of the persisted write index, which makes batches
// atomic and lets the engine advertise db.FeatureDurable.
//
// Stale writes are filtered inside SQL: an upsert only replaces a row whose index is not
// higher than the incoming one.
//
// Snapshots (Save/Load) use the same stream format as the maple engine, see util.WriteSnapshot.
package lite
