// Package dstore implements a replicated key-value store using the Dragonboat RAFT
// consensus library. It provides a strongly consistent implementation of the store.IStore
// interface and is the durable backend of the record store when it runs as a cluster.
//
// Architecture:
//
//   - Store Client: Implements store.IStore. It serializes operations into commands, sends
//     them to the consensus layer, and processes responses.
//
//   - State Machine: A Dragonboat IConcurrentStateMachine that holds the actual db.KVDB
//     instance and applies committed commands to it.
//
//   - Communication Protocol: Defined in the internal package (Command and Query).
//
// Write Operations:
//
//	All write operations (Set, Delete, Apply) follow this flow:
//
//	1. The operation is serialized into a Command (Apply becomes one Batch command)
//	2. The Command is proposed to the RAFT cluster via SyncPropose
//	3. Once committed, the command is executed on the state machine on each node
//	4. The result is returned to the client
//
//	The write index for all operations is the RAFT log index. Because a whole batch is a
//	single log entry, a record and its counter are always applied together.
//
// Read Operations:
//
//	Get, Has and Scan use SyncRead, so they observe every committed write.
//	GetDBInfo uses StaleRead.
//
// Error Handling and Retries:
//
//	When Dragonboat returns ErrSystemBusy, the operation is retried after a short delay.
//	Every attempt has its own timeout. Errors of the state machine reach the caller as
//	*store.Error with their original code.
//
// Metrics:
//
//	recstore_raft_entries_total{shard,result} counts applied and rejected log entries,
//	recstore_raft_update_seconds{shard} measures how long a batch of entries took.
//
// Snapshotting and Recovery:
//
//	Snapshots are fuzzy and use the db.KVDB's Save method. On startup a node loads the most
//	recent snapshot and replays the RAFT log entries written after it, so the records
//	survive restarts of the whole cluster.
//
// Example:
//
//	nh, err := dragonboat.NewNodeHost(nodeHostConfig)
//	if err != nil { ... }
//
//	dbFactory := func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil }
//
//	// starts the replica and waits (up to the timeout) for a leader
//	kv, err := dstore.Start(nh, shardConfig, clusterMembers, dbFactory, 5*time.Second)
//	if err != nil { ... }
//	defer kv.Close()
package dstore
