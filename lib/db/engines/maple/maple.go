package maple

import (
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/db/engines/maple/internal"
	"github.com/ValentinKolb/recstore/lib/db/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

// Constants for database behavior and structure
const (
	magicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

// mapleImpl implements an in-memory database with sharded data
type mapleImpl struct {
	numShards int               // Number of shards
	seed      uint64            // Seed for hash function
	shards    []*internal.Shard // Array of shards
	currIndex atomic.Uint64     // Current logical timestamp

	// batchMu makes batches atomic for readers: single key operations share the lock,
	// Apply and Load hold it exclusively
	batchMu sync.RWMutex
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(), // Auto-determine based on CPU count
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
//
// Thread-safety: This function is not thread-safe and should only be called once
// during initialization.
func NewMapleDB(opts *DBOptions) db.KVDB {

	// Generate default options if not provided
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	newDB := &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
	}
	newDB.shards = newShards(opts.NumShards)

	return newDB
}

func newShards(n int) []*internal.Shard {
	shards := make([]*internal.Shard, n)
	for i := 0; i < n; i++ {
		shards[i] = internal.NewShard()
	}
	return shards
}

func (maple *mapleImpl) shard(key string) *internal.Shard {
	return internal.GetShard(key, maple.seed, maple.shards)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry with the given key, value, and writeIndex.
// If the key already exists, the old value is overwritten.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Set(key string, value []byte, writeIndex uint64) {
	maple.batchMu.RLock()
	defer maple.batchMu.RUnlock()

	maple.set(key, value, writeIndex)
}

// Delete removes an entry with the specified key. This change is immediate.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Delete(key string, writeIndex uint64) {
	maple.batchMu.RLock()
	defer maple.batchMu.RUnlock()

	maple.delete(key, writeIndex)
}

// Apply executes all mutations of the batch. Readers either see none or all of them.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Apply(batch []db.Mutation, writeIndex uint64) {
	maple.batchMu.Lock()
	defer maple.batchMu.Unlock()

	for _, m := range batch {
		if m.Delete {
			maple.delete(m.Key, writeIndex)
		} else {
			maple.set(m.Key, m.Value, writeIndex)
		}
	}
}

// set stores the value, stale writes (writeIndex lower than the stored index) are ignored.
func (maple *mapleImpl) set(key string, value []byte, writeIndex uint64) {
	maple.SetWriteIdx(writeIndex)

	// Copy value to prevent memory corruption
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	maple.shard(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if loaded && writeIndex < old.Index {
			return old, false
		}
		return internal.Entry{Value: valueCopy, Index: writeIndex}, false
	})
}

// delete removes the key, stale deletes are ignored.
func (maple *mapleImpl) delete(key string, writeIndex uint64) {
	maple.SetWriteIdx(writeIndex)

	maple.shard(key).Data.Compute(key, func(old internal.Entry, loaded bool) (internal.Entry, bool) {
		if !loaded {
			return old, true // set delete to true because else the value will be created
		}
		if writeIndex < old.Index {
			return old, false
		}
		return old, true
	})
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key.
// The returned value is a copy of the stored data and therefore safe to use and modify.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Get(key string) ([]byte, bool) {
	maple.batchMu.RLock()
	defer maple.batchMu.RUnlock()

	e, ok := maple.shard(key).Data.Load(key)
	if !ok {
		return nil, false
	}
	data := make([]byte, len(e.Value))
	copy(data, e.Value)
	return data, true
}

// Has checks if a key exists in the database.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Has(key string) bool {
	maple.batchMu.RLock()
	defer maple.batchMu.RUnlock()

	_, ok := maple.shard(key).Data.Load(key)
	return ok
}

// Scan visits all entries with the given prefix in ascending key order.
// Keys are spread over the shards by hash, so matching entries are collected from
// every shard and sorted before fn is called. fn runs without holding any lock.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (maple *mapleImpl) Scan(prefix string, fn func(key string, value []byte) bool) {
	matches := maple.collect(prefix)

	sort.Slice(matches, func(i, j int) bool { return matches[i].Key < matches[j].Key })

	for _, kv := range matches {
		if !fn(kv.Key, kv.Value) {
			return
		}
	}
}

// collect copies all entries with the given prefix out of the shards
func (maple *mapleImpl) collect(prefix string) []db.KeyValue {
	maple.batchMu.RLock()
	defer maple.batchMu.RUnlock()

	var matches []db.KeyValue
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			if strings.HasPrefix(key, prefix) {
				value := make([]byte, len(entry.Value))
				copy(value, entry.Value)
				matches = append(matches, db.KeyValue{Key: key, Value: value})
			}
			return true
		})
	}
	return matches
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save persists the database to the writer.
// Entries are written in key order so that two saves of the same state are byte-identical.
//
// Thread-safety: Save takes a consistent snapshot (no batch is half visible) and
// writes it without blocking further modifications.
func (maple *mapleImpl) Save(w io.Writer) error {
	maple.batchMu.RLock()
	var entries []util.SnapshotEntry
	for _, shard := range maple.shards {
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			value := make([]byte, len(entry.Value))
			copy(value, entry.Value)
			entries = append(entries, util.SnapshotEntry{Key: key, Index: entry.Index, Value: value})
			return true
		})
	}
	writeIdx := maple.currIndex.Load()
	maple.batchMu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })

	return util.WriteSnapshot(w, magicNum, mapleVersion, writeIdx, entries)
}

// Load restores a database from the reader, replacing the current content.
// If the snapshot is invalid the current content is kept.
//
// Thread-safety: Load blocks all other operations while the shards are swapped.
func (maple *mapleImpl) Load(r io.Reader) error {
	shards := newShards(maple.numShards)

	writeIdx, err := util.ReadSnapshot(r, magicNum, mapleVersion, func(e util.SnapshotEntry) {
		internal.GetShard(e.Key, maple.seed, shards).Data.Store(e.Key, internal.Entry{
			Value: e.Value,
			Index: e.Index,
		})
	})
	if err != nil {
		return err
	}

	maple.batchMu.Lock()
	defer maple.batchMu.Unlock()

	maple.shards = shards
	maple.currIndex.Store(0)
	maple.SetWriteIdx(writeIdx)

	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	maple.batchMu.RLock()
	defer maple.batchMu.RUnlock()

	histogram := util.NewSizeHistogram()
	samplesPerShard := 100
	shardSizes := make([]int, len(maple.shards))
	keys := 0

	for i, shard := range maple.shards {
		count := 0
		shard.Data.Range(func(key string, entry internal.Entry) bool {
			histogram.AddSample(len(key) + len(entry.Value))
			count++
			return count < samplesPerShard
		})
		shardSizes[i] = shard.Data.Size()
		keys += shardSizes[i]
	}

	// calculate size
	entryOverhead := 8 // index
	medianSize := histogram.MedianEstimate() + entryOverhead
	avgSize := histogram.AverageSize() + entryOverhead

	// weighted estimate (60% median, 40% average)
	sizeBytes := keys * ((medianSize*60 + avgSize*40) / 100)

	// Metadata for this specific database implementation
	meta := &struct {
		CurrentWriteIndex uint64     `json:"current_write_index"`
		ShardCount        int        `json:"shard_count"`
		ShardDistribution util.Stats `json:"shard_distribution"`
		Info              string     `json:"info"`
	}{
		CurrentWriteIndex: maple.currIndex.Load(),
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewStats(shardSizes),
		Info:              "SizeBytes is an estimate based on a sample of the entries.",
	}

	return db.DatabaseInfo{
		SizeBytes: sizeBytes,
		Keys:      keys,
		DbType:    db.ImplMaple,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas,
			db.FeatureScan, db.FeatureApply,
			db.FeatureSave, db.FeatureLoad,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureScan |
		db.FeatureApply |
		db.FeatureSave |
		db.FeatureLoad
	return supportedFeatures&feature == feature
}

// Close releases the shards
func (maple *mapleImpl) Close() error {
	maple.batchMu.Lock()
	defer maple.batchMu.Unlock()

	for _, shard := range maple.shards {
		shard.Data.Clear()
	}
	return nil
}

// --------------------------------------------------------------------------
// Index and Timestamp Management
// --------------------------------------------------------------------------

// SetWriteIdx safely updates the current index
// It only updates if the new index is greater than the current one
//
// Thread-safety: This method is thread-safe and can be called concurrently.
// It uses atomic operations to ensure that the index only increases.
func (maple *mapleImpl) SetWriteIdx(newIdx uint64) {
	for {
		currIdx := maple.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if maple.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (maple *mapleImpl) WriteIdx() uint64 {
	return maple.currIndex.Load()
}
