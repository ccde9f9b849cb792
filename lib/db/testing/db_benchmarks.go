package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/recstore/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, factory(b))
	})

	b.Run("SetExisting", func(b *testing.B) {
		benchmarkSetExisting(b, factory(b))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, factory(b))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, factory(b))
	})

	b.Run("Has(not)", func(b *testing.B) {
		benchmarkHasNot(b, factory(b))
	})

	b.Run("ApplyInsert", func(b *testing.B) {
		benchmarkApplyInsert(b, factory(b))
	})

	b.Run("Scan", func(b *testing.B) {
		benchmarkScan(b, factory(b))
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, factory(b))
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

// Benchmark for Set operation
func benchmarkSet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	var index atomic.Uint64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := index.Add(1)
			key := fmt.Sprintf("test-key-%d", i)
			value := []byte(fmt.Sprintf("test-value-%d", i))
			database.Set(key, value, i)
		}
	})
}

// Benchmark for Set operation with existing keys
func benchmarkSetExisting(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	// Prepare data
	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		database.Set(key, value, 1)
	}

	var index atomic.Uint64
	index.Store(1)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := index.Add(1)
			key := fmt.Sprintf("test-key-%d", i%uint64(numKeys))
			database.Set(key, []byte("updated"), i)
		}
	})
}

// Parallel benchmarking for Get operation
func benchmarkGet(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	// Prepare data
	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		key := fmt.Sprintf("test-key-%d", i)
		value := []byte(fmt.Sprintf("test-value-%d", i))
		database.Set(key, value, uint64(i+1))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("test-key-%d", counter%numKeys)
			database.Get(key)
			counter++
		}
	})
}

// Parallel benchmarking for Delete operation
func benchmarkDelete(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureDelete)

	numKeys := 10000
	if b.N < numKeys {
		numKeys = b.N
	}

	// Prepare data
	for i := 0; i < numKeys; i++ {
		database.Set(fmt.Sprintf("test-key-%d", i), []byte("value"), 1)
	}

	// Counter for atomic access
	var counter atomic.Uint64
	counter.Store(1)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := counter.Add(1)
			database.Delete(fmt.Sprintf("test-key-%d", i%uint64(numKeys)), i)
		}
	})
}

// Parallel benchmarking for Has operation on missing keys
func benchmarkHasNot(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHas)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			database.Has(fmt.Sprintf("missing-key-%d", counter))
			counter++
		}
	})
}

// Benchmark for the insert pattern of the record store: one record and the counter per batch
func benchmarkApplyInsert(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureApply)

	value := bytes.Repeat([]byte("x"), 128)

	b.ResetTimer()
	for i := 1; i <= b.N; i++ {
		database.Apply([]db.Mutation{
			{Key: recordKey("r002/", i), Value: value},
			{Key: "r000/counter", Value: []byte(fmt.Sprintf("%d", i))},
		}, uint64(i))
	}
}

// Benchmark for ordered prefix scans over a region
func benchmarkScan(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureScan)

	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		database.Set(recordKey("r002/", i), []byte("value"), uint64(i+1))
		database.Set(recordKey("r003/", i), []byte("value"), uint64(i+1))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count := 0
		database.Scan("r002/", func(string, []byte) bool {
			count++
			return true
		})
		if count != numKeys {
			b.Fatalf("Expected %d keys, got %d", numKeys, count)
		}
	}
}

// Benchmark for a full save and load round trip
func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory(b)
	database2 := factory(b)

	b.Cleanup(func() {
		database.Close()
		database2.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureSave|db.FeatureLoad)

	numKeys := 10000
	for i := 0; i < numKeys; i++ {
		database.Set(recordKey("save/", i), []byte(fmt.Sprintf("value-%d", i)), uint64(i+1))
	}

	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := database.Save(&buf); err != nil {
			b.Fatalf("Save failed: %v", err)
		}
		if err := database2.Load(&buf); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

// Benchmark for mixed read and write load
func benchmarkMixedUsage(b *testing.B, database db.KVDB) {

	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet|db.FeatureScan)

	numKeys := 1000
	for i := 0; i < numKeys; i++ {
		database.Set(recordKey("mixed/", i), []byte("value"), 1)
	}

	var index atomic.Uint64
	index.Store(1)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		counter := 0

		for pb.Next() {
			key := recordKey("mixed/", counter%numKeys)

			// Random operation: 70% Get, 25% Set, 5% Scan
			switch r := rnd.Float32(); {
			case r < .7:
				database.Get(key)
			case r < .95:
				database.Set(key, []byte("updated"), index.Add(1))
			default:
				database.Scan("mixed/", func(string, []byte) bool { return true })
			}

			counter++
		}
	})
}
