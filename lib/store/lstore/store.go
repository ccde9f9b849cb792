package lstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("lstore")

type storeImpl struct {
	db    db.KVDB
	index atomic.Uint64

	// writeMu serializes writes, so guards are checked and the batch is applied in one step.
	// The engine is owned by the store, no other writer can touch it.
	writeMu sync.Mutex

	// snapshot file, only used for engines that are not durable on their own
	snapshotPath string
}

// Option configures the local store
type Option func(*storeImpl)

// WithSnapshotFile makes the store write a snapshot of the engine to path after every
// write and load it on startup. Durable engines ignore this option.
func WithSnapshotFile(path string) Option {
	return func(s *storeImpl) {
		s.snapshotPath = path
	}
}

// NewLocalStore creates a new local store instance.
// This store implementation is not distributed and only works on a single node.
// The write index continues from the index of the engine (or of the loaded snapshot).
func NewLocalStore(factory store.DBFactory, opts ...Option) (store.IStore, error) {
	database, err := factory()
	if err != nil {
		return nil, fmt.Errorf("lstore: create database: %w", err)
	}

	s := &storeImpl{db: database}
	for _, opt := range opts {
		opt(s)
	}

	if s.usesSnapshot() {
		if err := s.restore(); err != nil {
			database.Close()
			return nil, err
		}
	}

	s.index.Store(database.WriteIdx())
	return s, nil
}

// Close closes the underlying database
func (s *storeImpl) Close() error {
	return s.db.Close()
}

// incAndGetIndex increments the index and returns the new value.
// It is used to ensure that each write operation has a unique index.
//
// Thread-safety: This method is thread-safe since it uses atomic operations.
func (s *storeImpl) incAndGetIndex() uint64 {
	return s.index.Add(1)
}

// --------------------------------------------------------------------------
// Snapshot file
// --------------------------------------------------------------------------

func (s *storeImpl) usesSnapshot() bool {
	return s.snapshotPath != "" && !s.db.SupportsFeature(db.FeatureDurable)
}

// restore loads the snapshot file if it exists
func (s *storeImpl) restore() error {
	f, err := os.Open(s.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lstore: open snapshot: %w", err)
	}
	defer f.Close()

	if err := s.db.Load(f); err != nil {
		return fmt.Errorf("lstore: load snapshot %s: %w", s.snapshotPath, err)
	}
	log.Infof("loaded snapshot %s (write index %d)", s.snapshotPath, s.db.WriteIdx())
	return nil
}

// persist writes the engine to a temporary file and renames it over the snapshot,
// so a crash never leaves a half written snapshot behind. Callers hold writeMu.
func (s *storeImpl) persist() error {
	if dir := filepath.Dir(s.snapshotPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return store.NewError(store.RetCInternalError, fmt.Sprintf("create snapshot directory: %v", err))
		}
	}

	tmp := s.snapshotPath + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("create snapshot: %v", err))
	}

	if err := s.db.Save(f); err != nil {
		f.Close()
		return store.NewError(store.RetCInternalError, fmt.Sprintf("write snapshot: %v", err))
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return store.NewError(store.RetCInternalError, fmt.Sprintf("sync snapshot: %v", err))
	}
	if err := f.Close(); err != nil {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("close snapshot: %v", err))
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return store.NewError(store.RetCInternalError, fmt.Sprintf("replace snapshot: %v", err))
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	if !s.db.SupportsFeature(db.FeatureSet) {
		return store.NewError(store.RetCUnsupportedOperation, "Set operation is not supported")
	}
	return s.write([]db.Mutation{{Key: key, Value: value}}, nil)
}

func (s *storeImpl) Delete(key string) error {
	if !s.db.SupportsFeature(db.FeatureDelete) {
		return store.NewError(store.RetCUnsupportedOperation, "Delete operation is not supported")
	}
	return s.write([]db.Mutation{{Key: key, Delete: true}}, nil)
}

func (s *storeImpl) Apply(batch []db.Mutation, guards ...store.Guard) error {
	if !s.db.SupportsFeature(db.FeatureApply) {
		return store.NewError(store.RetCUnsupportedOperation, "Apply operation is not supported")
	}
	if len(batch) == 0 {
		return nil
	}
	return s.write(batch, guards)
}

// write checks the guards, applies the batch and updates the snapshot file.
// If the snapshot cannot be written, the batch is undone, so a failed write never
// leaves changes behind that would be lost on the next restart.
func (s *storeImpl) write(batch []db.Mutation, guards []store.Guard) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for _, g := range guards {
		value, ok := s.db.Get(g.Key)
		if !g.Check(value, ok) {
			return store.NewError(store.RetCConflict, fmt.Sprintf("guard on %q does not hold", g.Key))
		}
	}

	if !s.usesSnapshot() {
		s.apply(batch)
		return nil
	}

	undo := s.undoOf(batch)
	s.apply(batch)
	if err := s.persist(); err != nil {
		s.apply(undo)
		log.Errorf("write undone, snapshot %s failed: %v", s.snapshotPath, err)
		return err
	}
	return nil
}

// apply writes the mutations with a fresh write index
func (s *storeImpl) apply(batch []db.Mutation) {
	idx := s.incAndGetIndex()
	if len(batch) > 1 {
		s.db.Apply(batch, idx)
		return
	}
	if m := batch[0]; m.Delete {
		s.db.Delete(m.Key, idx)
	} else {
		s.db.Set(m.Key, m.Value, idx)
	}
}

// undoOf returns the mutations that restore the current values of all keys of batch
func (s *storeImpl) undoOf(batch []db.Mutation) []db.Mutation {
	seen := make(map[string]bool, len(batch))
	undo := make([]db.Mutation, 0, len(batch))
	for _, m := range batch {
		if seen[m.Key] {
			continue
		}
		seen[m.Key] = true
		if value, ok := s.db.Get(m.Key); ok {
			undo = append(undo, db.Mutation{Key: m.Key, Value: value})
		} else {
			undo = append(undo, db.Mutation{Key: m.Key, Delete: true})
		}
	}
	return undo
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	if !s.db.SupportsFeature(db.FeatureGet) {
		return nil, false, store.NewError(store.RetCUnsupportedOperation, "Get operation is not supported")
	}
	val, ok := s.db.Get(key)
	return val, ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	if !s.db.SupportsFeature(db.FeatureHas) {
		return false, store.NewError(store.RetCUnsupportedOperation, "Has operation is not supported")
	}
	return s.db.Has(key), nil
}

func (s *storeImpl) Scan(prefix string) ([]db.KeyValue, error) {
	if !s.db.SupportsFeature(db.FeatureScan) {
		return nil, store.NewError(store.RetCUnsupportedOperation, "Scan operation is not supported")
	}
	var entries []db.KeyValue
	s.db.Scan(prefix, func(key string, value []byte) bool {
		entries = append(entries, db.KeyValue{Key: key, Value: value})
		return true
	})
	return entries, nil
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return s.db.GetInfo(), nil
}
