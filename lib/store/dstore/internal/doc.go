// Package internal provides the communication protocol structures and serialization
// logic for the dstore package. It defines the wire format used to transmit operations
// between the store client and the distributed state machine.
//
// This package is intended for internal use by the dstore implementation and should
// not be imported directly by external code.
//
// The package consists of two main components:
//
//   - Command System: Defines write operations (Set, Delete, Batch) that modify the
//     state of the database. Commands are serialized and proposed to the RAFT cluster,
//     executed on the state machine, and produce results that are returned to the client.
//     A Batch is a single RAFT log entry, so all its mutations are applied together.
//
//   - Query System: Defines read operations (Get, Has, Scan, GetDBInfo) that retrieve data
//     from the database without modifying its state. Queries are executed locally on the
//     statemachine and therefore do not require serialization.
//
// Command Format:
//
//	Commands are serialized into a binary format with the following structure:
//
//	- 1 byte: Command type (Set, Delete, Batch)
//	- 4 bytes: Number of mutations (uint32, big endian)
//	- per mutation:
//	  - 1 byte: Kind (0 = set, 1 = delete)
//	  - 4 bytes: Key length (uint32, big endian)
//	  - N bytes: Key data
//	  - 4 bytes: Value length (uint32, big endian)
//	  - M bytes: Value data (empty for deletes)
//
//	Set and Delete carry exactly one mutation.
//
// Query Format:
//
//	Queries use a simpler structure as they are not persisted in the RAFT log:
//
//	- Type: The query operation to perform (Get, Has, Scan, GetDBInfo)
//	- Key: The key (or prefix) to query (empty for GetDBInfo)
//
// Type Mapping:
//
//	The package provides bidirectional mapping between:
//	- Command types and db.Feature (db.KVDB) flags for feature detection
//	- String representations for logging and debugging
//
// Thread Safety:
//
//	The types in this package are not thread-safe and should not be shared
//	across goroutines without external synchronization. However, this is not
//	typically an issue as the RAFT protocol ensures sequential processing of
//	commands on the state machine.
package internal
