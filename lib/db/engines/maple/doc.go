// Package maple implements an in-memory key-value database (KVDB) with sharded
// storage. It provides a complete implementation of the db.KVDB interface except
// durability: data only survives a restart through Save and Load (the local store
// does this automatically when it is given a snapshot file).
//
// Key Components:
//
//   - mapleImpl: The central database structure implementing db.KVDB. It manages the
//     shards and provides the public API for key-value operations. The mapleImpl does
//     not generate write indices itself, the caller passes them with every write
//     (the local store uses an atomic counter, the distributed store the RAFT log index).
//
//   - Shard: A partition of the database that manages a subset of the key space.
//     Keys are spread across shards by hashing them with a database-specific seed
//     (FNV-1a, see util.HashString) and using the higher bits of the hash.
//
//   - Entry: A stored value plus the write index of its last modification.
//
// Internal Mechanisms:
//
//   - Stale Write Prevention: A write (or delete) is only applied if its write index
//     is greater than or equal to the stored index of the entry.
//
//   - Batches: Apply holds the database exclusively while it applies all mutations,
//     single key operations share the lock. A reader never observes half of a batch.
//
//   - Ordered Scans: The hash distribution has no order, Scan collects all matching
//     entries and sorts them by key before visiting them (O(n log n) per scan).
//
//   - Persistence: Save writes a sorted, point-in-time snapshot in the shared snapshot
//     format (util.WriteSnapshot). Load builds fresh shards and swaps them in only
//     after the whole stream was read successfully.
//
// Usage Example:
//
//	database := maple.NewMapleDB(nil)
//	database.Set("r002/00000000000000000001", ticketBytes, 1)
//	database.Scan("r002/", func(key string, value []byte) bool {
//	    fmt.Println(key)
//	    return true
//	})
package maple
