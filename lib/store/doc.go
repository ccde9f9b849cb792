// Package store provides the storage interface the record store is written against.
// It serves as an abstraction layer over the lower-level db.KVDB implementations, adding
// write index management, atomic batches and standardized error reporting.
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining operations for interacting with
//     a key-value store (Set, Delete, Apply, Get, Has, Scan, GetDBInfo, Close). All
//     implementations share this interface, so the record store can switch between
//     backends without code changes.
//
//   - Error System: *Error carries a RetCode and a message, CodeOf extracts the code
//     from any error.
//
//   - DBFactory: A function type that abstracts the creation of underlying db.KVDB
//     instances.
//
// Implementations:
//
//	- Local Store (lstore): Uses a db.KVDB instance directly and manages the write
//	  index with atomic operations. Optionally keeps a snapshot file for engines
//	  that are not durable on their own.
//	  Available in the "github.com/ValentinKolb/recstore/lib/store/lstore" package.
//
//	- Distributed Store (dstore): Built on the Dragonboat RAFT consensus library.
//	  Every write (including a whole batch) is one RAFT proposal, so batches stay
//	  atomic across replicas and survive restarts through the RAFT log.
//	  Available in the "github.com/ValentinKolb/recstore/lib/store/dstore" package.
package store
