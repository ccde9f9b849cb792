// Package lstore implements a local, single-node key-value store based on the
// store.IStore interface. It provides a thin wrapper around any db.KVDB
// implementation with automatic write index management.
//
// Implementation Details:
//
//   - Write Index Management: The store maintains an atomic counter that increments
//     with each write operation (a batch counts as one write). The counter starts at the
//     write index of the engine, so a durable engine (or a loaded snapshot) continues
//     where it stopped instead of having its writes rejected as stale.
//
//   - Feature Detection: Before executing operations, the store checks if the underlying
//     db.KVDB implementation supports the requested feature. Unsupported operations
//     return store.RetCUnsupportedOperation.
//
//   - Snapshot File: Engines without db.FeatureDurable (maple) can be made durable with
//     WithSnapshotFile. The file is loaded on startup and rewritten after every write
//     (temporary file, fsync, rename). Durable engines (lite) ignore the option.
//
// Usage Example:
//
//	factory := func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }
//	kv, err := lstore.NewLocalStore(factory, lstore.WithSnapshotFile("data/tickets.snap"))
//
//	err = kv.Apply([]db.Mutation{
//		{Key: "r002/00000000000000000001", Value: record},
//		{Key: "r000/counter", Value: counter},
//	})
package lstore
