package dstore

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/ValentinKolb/recstore/lib/store/dstore/internal"
	"github.com/VictoriaMetrics/metrics"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

// KVStateMachine applies the committed commands of one shard to its own db.KVDB.
// The RAFT log index is the write index of every mutation, so all replicas hold the
// same indexes and a replayed entry never overwrites a newer value.
type KVStateMachine struct {
	replicaID uint64
	shardID   uint64
	database  db.KVDB

	applied  *metrics.Counter
	rejected *metrics.Counter
	duration *metrics.Histogram
}

// CreateStateMaschineFactory returns the factory dragonboat uses to create the state machine
// of a replica. Every replica gets a fresh database from dbFactory.
func CreateStateMaschineFactory(dbFactory store.DBFactory) func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
	return func(shardID uint64, replicaID uint64) sm.IConcurrentStateMachine {
		database, err := dbFactory()
		if err != nil {
			log.Panicf("shard %d replica %d: create database: %v", shardID, replicaID, err)
		}

		shard := strconv.FormatUint(shardID, 10)
		return &KVStateMachine{
			replicaID: replicaID,
			shardID:   shardID,
			database:  database,
			applied:   metrics.GetOrCreateCounter(`recstore_raft_entries_total{shard="` + shard + `",result="applied"}`),
			rejected:  metrics.GetOrCreateCounter(`recstore_raft_entries_total{shard="` + shard + `",result="rejected"}`),
			duration:  metrics.GetOrCreateHistogram(`recstore_raft_update_seconds{shard="` + shard + `"}`),
		}
	}
}

// Lookup answers a read-only internal.Query.
func (fsm *KVStateMachine) Lookup(itf interface{}) (interface{}, error) {
	q, ok := itf.(internal.Query)
	if !ok {
		return nil, store.NewError(store.RetCInternalError, fmt.Sprintf("invalid Query type: %T", itf))
	}

	if feat, ok := q.Type.ToDBFeature(); ok && !fsm.database.SupportsFeature(feat) {
		return nil, store.NewError(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not supported", q.Type))
	}

	switch q.Type {
	case internal.QueryTGet:
		val, ok := fsm.database.Get(q.Key)
		return internal.QueryResult{Value: val, Ok: ok}, nil
	case internal.QueryTHas:
		return fsm.database.Has(q.Key), nil
	case internal.QueryTScan:
		entries := []db.KeyValue{}
		fsm.database.Scan(q.Key, func(key string, value []byte) bool {
			entries = append(entries, db.KeyValue{Key: key, Value: value})
			return true
		})
		return entries, nil
	case internal.QueryTGetDBInfo:
		return fsm.database.GetInfo(), nil
	default:
		return nil, store.NewError(store.RetCInvalidOperation, fmt.Sprintf("unknown Query operation: %s", q.Type))
	}
}

// Update applies a batch of committed log entries. A bad entry is answered with an error
// code in its result and never stops the shard.
func (fsm *KVStateMachine) Update(entries []sm.Entry) ([]sm.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	start := time.Now()
	for i := range entries {
		entries[i].Result = fsm.apply(entries[i])
		if store.RetCode(entries[i].Result.Value) == store.RetCSuccess {
			fsm.applied.Inc()
		} else {
			fsm.rejected.Inc()
		}
	}

	elapsed := time.Since(start)
	fsm.duration.Update(elapsed.Seconds())
	if elapsed > time.Millisecond {
		log.Infof("shard %d: applying %d entries took %.2fms", fsm.shardID, len(entries), float64(elapsed)/float64(time.Millisecond))
	}
	return entries, nil
}

// apply executes a single log entry
func (fsm *KVStateMachine) apply(e sm.Entry) sm.Result {
	if len(e.Cmd) == 0 {
		return result(store.RetCInvalidOperation, "empty command ignored")
	}

	var cmd internal.Command
	if err := cmd.Deserialize(e.Cmd); err != nil {
		return result(store.RetCInternalError, fmt.Sprintf("failed to deserialize command: %v", err))
	}

	feat, err := cmd.Type.ToDBFeature()
	if err != nil {
		return result(store.RetCInvalidOperation, fmt.Sprintf("unknown Command operation: %s", cmd.Type))
	}
	if !fsm.database.SupportsFeature(feat) {
		return result(store.RetCUnsupportedOperation, fmt.Sprintf("%s operation is not supported", cmd.Type))
	}

	// updates are applied one after another, so nothing can change between check and write
	for _, g := range cmd.Guards {
		value, ok := fsm.database.Get(g.Key)
		if !g.Check(value, ok) {
			return result(store.RetCConflict, fmt.Sprintf("guard on %q does not hold", g.Key))
		}
	}

	// Deserialize guarantees exactly one mutation for Set and Delete
	switch cmd.Type {
	case internal.CommandTSet:
		fsm.database.Set(cmd.Mutations[0].Key, cmd.Mutations[0].Value, e.Index)
	case internal.CommandTDelete:
		fsm.database.Delete(cmd.Mutations[0].Key, e.Index)
	case internal.CommandTBatch:
		fsm.database.Apply(cmd.Mutations, e.Index)
	}
	return sm.Result{Value: uint64(store.RetCSuccess)}
}

func result(code store.RetCode, msg string) sm.Result {
	return sm.Result{Value: uint64(code), Data: []byte(msg)}
}

// PrepareSnapshot returns nothing, snapshots are fuzzy (see db.KVDB.Save)
func (fsm *KVStateMachine) PrepareSnapshot() (interface{}, error) {
	return nil, nil
}

// SaveSnapshot writes the database to the writer
func (fsm *KVStateMachine) SaveSnapshot(_ interface{}, writer io.Writer, _ sm.ISnapshotFileCollection, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureSave) {
		return fmt.Errorf("shard %d: database does not support snapshots (Save)", fsm.shardID)
	}
	return fsm.database.Save(writer)
}

// RecoverFromSnapshot replaces the content of the database with the snapshot.
func (fsm *KVStateMachine) RecoverFromSnapshot(r io.Reader, _ []sm.SnapshotFile, _ <-chan struct{}) error {
	if !fsm.database.SupportsFeature(db.FeatureLoad) {
		return fmt.Errorf("shard %d: database does not support snapshots (Load)", fsm.shardID)
	}
	if err := fsm.database.Load(r); err != nil {
		return fmt.Errorf("shard %d: recover from snapshot: %w", fsm.shardID, err)
	}
	log.Infof("shard %d replica %d: recovered from snapshot (write index %d)", fsm.shardID, fsm.replicaID, fsm.database.WriteIdx())
	return nil
}

// Close closes the database of the replica.
func (fsm *KVStateMachine) Close() error {
	return fsm.database.Close()
}
