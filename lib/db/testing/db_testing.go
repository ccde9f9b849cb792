package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/recstore/lib/db"
)

// DBFactory is a function that creates a new instance of a KVDB implementation.
// The test handle allows implementations to place files in t.TempDir().
type DBFactory func(t testing.TB) db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(t))
		})

		t.Run("StaleWrites", func(t *testing.T) {
			testStaleWrites(t, factory(t))
		})

		t.Run("Scan", func(t *testing.T) {
			testScan(t, factory(t))
		})

		t.Run("ScanEarlyStop", func(t *testing.T) {
			testScanEarlyStop(t, factory(t))
		})

		t.Run("Apply", func(t *testing.T) {
			testApply(t, factory(t))
		})

		t.Run("WriteIdx", func(t *testing.T) {
			testWriteIdx(t, factory(t))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("LoadInvalid", func(t *testing.T) {
			testLoadInvalid(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("ConcurrentUsage", func(t *testing.T) {
			testConcurrentUsage(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

// recordKey builds keys the way the record store does (fixed width ids)
func recordKey(prefix string, id int) string {
	return fmt.Sprintf("%s%020d", prefix, id)
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	database.Set(testKey, testValue1, 1)

	result, exists := database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	database.Set(testKey, testValue2, 2)

	result, exists = database.Get(testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}

	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	_, exists = database.Get("nonexistent-key")
	if exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	// returned values must be copies
	retrievedValue, _ := database.Get(testKey)
	retrievedValue[0] = 'X'

	result, _ = database.Get(testKey)
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Modifying a returned value changed the stored value: %s", result)
	}

	// values passed to Set must be copied as well
	input := []byte("original")
	database.Set("copy-key", input, 3)
	input[0] = 'X'
	result, _ = database.Get("copy-key")
	if !bytes.Equal(result, []byte("original")) {
		t.Errorf("Modifying the input slice changed the stored value: %s", result)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	testKey := "delete-test-key"
	database.Set(testKey, []byte("value"), 1)

	database.Delete(testKey, 2)

	if _, exists := database.Get(testKey); exists {
		t.Errorf("Expected key %s to not exist after Delete", testKey)
	}

	// deleting a missing key must not create it
	database.Delete("never-set", 3)
	if _, exists := database.Get("never-set"); exists {
		t.Errorf("Expected Delete of a missing key to be a no-op")
	}

	// the key can be set again after deletion
	database.Set(testKey, []byte("again"), 4)
	if result, exists := database.Get(testKey); !exists || !bytes.Equal(result, []byte("again")) {
		t.Errorf("Expected key %s to be set again after Delete, got %s (exists=%v)", testKey, result, exists)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas|db.FeatureDelete)

	if database.Has("has-key") {
		t.Errorf("Expected Has to return false for a missing key")
	}

	database.Set("has-key", []byte("value"), 1)
	if !database.Has("has-key") {
		t.Errorf("Expected Has to return true after Set")
	}

	database.Delete("has-key", 2)
	if database.Has("has-key") {
		t.Errorf("Expected Has to return false after Delete")
	}
}

func testStaleWrites(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	database.Set("stale-key", []byte("new"), 10)
	database.Set("stale-key", []byte("old"), 5)

	if result, _ := database.Get("stale-key"); !bytes.Equal(result, []byte("new")) {
		t.Errorf("Expected stale Set to be ignored, got %s", result)
	}

	database.Delete("stale-key", 7)
	if _, exists := database.Get("stale-key"); !exists {
		t.Errorf("Expected stale Delete to be ignored")
	}

	// same index is not stale
	database.Set("stale-key", []byte("same"), 10)
	if result, _ := database.Get("stale-key"); !bytes.Equal(result, []byte("same")) {
		t.Errorf("Expected Set with equal index to be applied, got %s", result)
	}
}

func testScan(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	// insert out of order, with a neighbouring prefix
	ids := []int{12, 3, 100, 1, 7}
	for i, id := range ids {
		database.Set(recordKey("r002/", id), []byte(fmt.Sprintf("v%d", id)), uint64(i+1))
	}
	database.Set(recordKey("r003/", 2), []byte("other"), 10)
	database.Set("r002/counter", []byte("counter"), 11)
	database.Set("r00", []byte("shorter"), 12)

	var keys []string
	database.Scan("r002/0", func(key string, value []byte) bool {
		keys = append(keys, key)
		return true
	})

	expected := []string{
		recordKey("r002/", 1), recordKey("r002/", 3), recordKey("r002/", 7),
		recordKey("r002/", 12), recordKey("r002/", 100),
	}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d: %v", len(expected), len(keys), keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Expected key %d to be %s, got %s", i, expected[i], keys[i])
		}
	}

	// values are delivered alongside the keys
	database.Scan(recordKey("r002/", 7), func(key string, value []byte) bool {
		if !bytes.Equal(value, []byte("v7")) {
			t.Errorf("Expected value v7 for %s, got %s", key, value)
		}
		return true
	})

	// the full prefix includes the counter key
	count := 0
	database.Scan("r002/", func(string, []byte) bool {
		count++
		return true
	})
	if count != 6 {
		t.Errorf("Expected 6 keys for prefix r002/, got %d", count)
	}

	// empty prefix visits everything
	count = 0
	database.Scan("", func(string, []byte) bool {
		count++
		return true
	})
	if count != 8 {
		t.Errorf("Expected 8 keys for the empty prefix, got %d", count)
	}

	// no match
	database.Scan("nope/", func(key string, _ []byte) bool {
		t.Errorf("Unexpected key %s for prefix without matches", key)
		return true
	})
}

func testScanEarlyStop(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureScan)

	for i := 1; i <= 10; i++ {
		database.Set(recordKey("stop/", i), []byte("v"), uint64(i))
	}

	var visited []string
	database.Scan("stop/", func(key string, _ []byte) bool {
		visited = append(visited, key)
		return len(visited) < 3
	})

	if len(visited) != 3 {
		t.Fatalf("Expected the scan to stop after 3 keys, visited %d", len(visited))
	}
	if visited[2] != recordKey("stop/", 3) {
		t.Errorf("Expected the third visited key to be %s, got %s", recordKey("stop/", 3), visited[2])
	}
}

func testApply(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureApply)

	database.Set("batch-delete", []byte("old"), 1)

	database.Apply([]db.Mutation{
		{Key: "batch-a", Value: []byte("a")},
		{Key: "batch-b", Value: []byte("b")},
		{Key: "batch-delete", Delete: true},
		{Key: "batch-missing", Delete: true},
	}, 2)

	if result, ok := database.Get("batch-a"); !ok || !bytes.Equal(result, []byte("a")) {
		t.Errorf("Expected batch-a=a after Apply, got %s (exists=%v)", result, ok)
	}
	if result, ok := database.Get("batch-b"); !ok || !bytes.Equal(result, []byte("b")) {
		t.Errorf("Expected batch-b=b after Apply, got %s (exists=%v)", result, ok)
	}
	if _, ok := database.Get("batch-delete"); ok {
		t.Errorf("Expected batch-delete to be removed by Apply")
	}
	if _, ok := database.Get("batch-missing"); ok {
		t.Errorf("Expected deleting a missing key in a batch to be a no-op")
	}

	// later mutations of the same key win
	database.Apply([]db.Mutation{
		{Key: "batch-a", Value: []byte("first")},
		{Key: "batch-a", Value: []byte("second")},
	}, 3)
	if result, _ := database.Get("batch-a"); !bytes.Equal(result, []byte("second")) {
		t.Errorf("Expected the last mutation of a batch to win, got %s", result)
	}

	// an empty batch is valid
	database.Apply(nil, 4)
}

func testWriteIdx(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	database.Set("idx", []byte("v"), 5)
	if idx := database.WriteIdx(); idx != 5 {
		t.Errorf("Expected write index 5 after Set, got %d", idx)
	}

	database.SetWriteIdx(3)
	if idx := database.WriteIdx(); idx != 5 {
		t.Errorf("Expected write index to stay at 5, got %d", idx)
	}

	database.SetWriteIdx(9)
	if idx := database.WriteIdx(); idx != 9 {
		t.Errorf("Expected write index 9, got %d", idx)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory(t)
	database2 := factory(t)

	// close the databases after the test
	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureSave|db.FeatureLoad)

	numEntries := 1000
	originalKeys := make([]string, numEntries)
	originalValues := make([][]byte, numEntries)

	for i := 0; i < numEntries; i++ {
		key := recordKey("save-load/", i)
		value := []byte(fmt.Sprintf("save-load-test-value-%d", i))
		originalKeys[i] = key
		originalValues[i] = value

		database.Set(key, value, uint64(i+1))
	}

	// content of the target database is replaced by Load
	database2.Set("only-in-target", []byte("x"), 1)

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}

	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		actualValue, exists := database2.Get(originalKeys[i])
		if !exists {
			t.Errorf("Key %s not found after Load", originalKeys[i])
			continue
		}
		if !bytes.Equal(actualValue, originalValues[i]) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", originalKeys[i], originalValues[i], actualValue)
		}
	}

	if _, exists := database2.Get("only-in-target"); exists {
		t.Errorf("Expected Load to replace the existing content")
	}

	if idx := database2.WriteIdx(); idx < uint64(numEntries) {
		t.Errorf("Expected write index >= %d after Load, got %d", numEntries, idx)
	}

	// the loaded database must still scan in order
	if database2.SupportsFeature(db.FeatureScan) {
		prev := ""
		database2.Scan("save-load/", func(key string, _ []byte) bool {
			if key <= prev {
				t.Errorf("Scan out of order after Load: %s after %s", key, prev)
			}
			prev = key
			return true
		})
	}
}

func testLoadInvalid(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureLoad)

	database.Set("keep", []byte("me"), 1)

	if err := database.Load(bytes.NewReader([]byte("definitely not a snapshot"))); err == nil {
		t.Errorf("Expected an error when loading garbage")
	}

	if result, ok := database.Get("keep"); !ok || !bytes.Equal(result, []byte("me")) {
		t.Errorf("Expected a failed Load to keep the existing content")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	emptyKey := ""
	emptyKeyValue := []byte("value for empty key")

	database.Set(emptyKey, emptyKeyValue, 1)

	result, exists := database.Get(emptyKey)
	if !exists {
		t.Errorf("Empty key not found after Set")
	} else if !bytes.Equal(result, emptyKeyValue) {
		t.Errorf("Value mismatch for empty key")
	}

	nilValueKey := "nil-value-key"
	database.Set(nilValueKey, nil, 2)

	result, exists = database.Get(nilValueKey)
	if !exists {
		t.Errorf("Key for nil value not found after Set")
	} else if len(result) != 0 {
		t.Errorf("Nil value resulted in non-empty value: %v", result)
	}

	largeValueKey := "large-value-key"
	largeValue := make([]byte, 1024*1024)
	for i := range largeValue {
		largeValue[i] = byte(i % 256)
	}

	database.Set(largeValueKey, largeValue, 3)

	result, exists = database.Get(largeValueKey)
	if !exists {
		t.Errorf("Key for large value not found after Set")
	} else if !bytes.Equal(result, largeValue) {
		t.Errorf("Large value mismatch (got %d bytes, want %d)", len(result), len(largeValue))
	}
}

func testConcurrentUsage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureScan|db.FeatureApply)

	const (
		workers = 8
		perWork = 50
	)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				key := recordKey(fmt.Sprintf("c%d/", w), i)
				database.Apply([]db.Mutation{
					{Key: key, Value: []byte("value")},
					{Key: fmt.Sprintf("c%d/counter", w), Value: []byte(fmt.Sprintf("%d", i))},
				}, uint64(w*perWork+i+1))
				database.Scan(fmt.Sprintf("c%d/", w), func(string, []byte) bool { return true })
			}
		}(w)
	}
	wg.Wait()

	for w := 0; w < workers; w++ {
		count := 0
		database.Scan(fmt.Sprintf("c%d/0", w), func(string, []byte) bool {
			count++
			return true
		})
		if count != perWork {
			t.Errorf("Expected %d entries for worker %d, got %d", perWork, w, count)
		}
	}
}
