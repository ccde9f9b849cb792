package lstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/db/engines/lite"
	"github.com/ValentinKolb/recstore/lib/db/engines/maple"
	"github.com/ValentinKolb/recstore/lib/store"
)

func mapleFactory() (db.KVDB, error) {
	return maple.NewMapleDB(nil), nil
}

func TestLocalStoreOperations(t *testing.T) {
	kv, err := NewLocalStore(mapleFactory)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := kv.Set("a/1", []byte("one")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Apply([]db.Mutation{
		{Key: "a/2", Value: []byte("two")},
		{Key: "a/counter", Value: []byte("2")},
		{Key: "b/1", Value: []byte("other")},
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	value, ok, err := kv.Get("a/2")
	if err != nil || !ok || !bytes.Equal(value, []byte("two")) {
		t.Errorf("Unexpected Get result: %q %v %v", value, ok, err)
	}

	entries, err := kv.Scan("a/")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	var keys []string
	for _, e := range entries {
		keys = append(keys, e.Key)
	}
	expected := []string{"a/1", "a/2", "a/counter"}
	if len(keys) != len(expected) {
		t.Fatalf("Expected keys %v, got %v", expected, keys)
	}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Errorf("Expected key %s at %d, got %s", expected[i], i, keys[i])
		}
	}

	if err := kv.Delete("a/1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok, _ := kv.Has("a/1"); ok {
		t.Errorf("Expected a/1 to be deleted")
	}

	// an empty batch is not a write
	if err := kv.Apply(nil); err != nil {
		t.Errorf("Empty Apply failed: %v", err)
	}

	info, err := kv.GetDBInfo()
	if err != nil || info.DbType != db.ImplMaple {
		t.Errorf("Unexpected db info: %+v %v", info, err)
	}
}

func TestLocalStoreSnapshotFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "store.snap")

	kv, err := NewLocalStore(mapleFactory, WithSnapshotFile(path))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := kv.Apply([]db.Mutation{
		{Key: "r002/00000000000000000001", Value: []byte("ticket")},
		{Key: "r000/counter", Value: []byte{1}},
	}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := kv.Set("tmp", []byte("x")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Delete("tmp"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// simulate a restart with a fresh engine
	restarted, err := NewLocalStore(mapleFactory, WithSnapshotFile(path))
	if err != nil {
		t.Fatalf("Failed to restart store: %v", err)
	}

	value, ok, _ := restarted.Get("r002/00000000000000000001")
	if !ok || !bytes.Equal(value, []byte("ticket")) {
		t.Errorf("Expected record after restart, got %q (exists=%v)", value, ok)
	}
	if ok, _ := restarted.Has("tmp"); ok {
		t.Errorf("Expected deleted key to stay deleted after restart")
	}

	// writes after the restart must not be rejected as stale
	if err := restarted.Set("r002/00000000000000000001", []byte("updated")); err != nil {
		t.Fatalf("Set after restart failed: %v", err)
	}
	value, _, _ = restarted.Get("r002/00000000000000000001")
	if !bytes.Equal(value, []byte("updated")) {
		t.Errorf("Expected updated value after restart, got %q", value)
	}
}

func TestLocalStoreCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()

	if _, err := NewLocalStore(mapleFactory, WithSnapshotFile(filepath.Join(dir, "missing.snap"))); err != nil {
		t.Errorf("A missing snapshot file must not be an error: %v", err)
	}

	path := filepath.Join(dir, "corrupt.snap")
	if err := os.WriteFile(path, []byte("not a snapshot"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	if _, err := NewLocalStore(mapleFactory, WithSnapshotFile(path)); err == nil {
		t.Errorf("Expected an error for a corrupt snapshot file")
	}
}

func TestLocalStoreDurableEngine(t *testing.T) {
	dir := t.TempDir()
	factory := func() (db.KVDB, error) {
		return lite.NewLiteDB(&lite.DBOptions{Path: filepath.Join(dir, "store.db")})
	}

	kv, err := NewLocalStore(factory, WithSnapshotFile(filepath.Join(dir, "ignored.snap")))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := kv.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.(interface{ Close() error }).Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	restarted, err := NewLocalStore(factory)
	if err != nil {
		t.Fatalf("Failed to restart store: %v", err)
	}
	defer restarted.(interface{ Close() error }).Close()

	if err := restarted.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set after restart failed: %v", err)
	}
	value, ok, _ := restarted.Get("k")
	if !ok || !bytes.Equal(value, []byte("v2")) {
		t.Errorf("Expected v2 after restart, got %q (exists=%v)", value, ok)
	}
}

func TestLocalStoreFactoryError(t *testing.T) {
	factory := func() (db.KVDB, error) {
		return nil, store.NewError(store.RetCInternalError, "boom")
	}
	if _, err := NewLocalStore(factory); err == nil {
		t.Errorf("Expected factory error to be returned")
	}
}

func TestLocalStoreGuards(t *testing.T) {
	kv, err := NewLocalStore(mapleFactory)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// first writer claims the counter
	if err := kv.Apply([]db.Mutation{
		{Key: "r002/00000000000000000001", Value: []byte("first")},
		{Key: "r000/counter", Value: []byte{1}},
	}, store.Absent("r000/counter")); err != nil {
		t.Fatalf("Guarded Apply failed: %v", err)
	}

	// second writer read the counter before the first one wrote it
	err = kv.Apply([]db.Mutation{
		{Key: "r002/00000000000000000001", Value: []byte("second")},
		{Key: "r000/counter", Value: []byte{1}},
	}, store.Absent("r000/counter"))
	if !store.IsConflict(err) {
		t.Fatalf("Expected a conflict, got %v", err)
	}

	value, _, _ := kv.Get("r002/00000000000000000001")
	if !bytes.Equal(value, []byte("first")) {
		t.Errorf("A rejected batch must not write anything, got %q", value)
	}

	// with the current value the batch goes through
	if err := kv.Apply([]db.Mutation{
		{Key: "r002/00000000000000000002", Value: []byte("second")},
		{Key: "r000/counter", Value: []byte{2}},
	}, store.Holds("r000/counter", []byte{1})); err != nil {
		t.Fatalf("Guarded Apply failed: %v", err)
	}
}

func TestLocalStoreUndoesWriteWhenSnapshotFails(t *testing.T) {
	dir := t.TempDir()
	snapDir := filepath.Join(dir, "snap")
	path := filepath.Join(snapDir, "store.snap")

	kv, err := NewLocalStore(mapleFactory, WithSnapshotFile(path))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := kv.Set("kept", []byte("1")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// the snapshot directory is replaced by a plain file, so the next snapshot fails
	if err := os.RemoveAll(snapDir); err != nil {
		t.Fatalf("Failed to remove directory: %v", err)
	}
	if err := os.WriteFile(snapDir, []byte("in the way"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	err = kv.Apply([]db.Mutation{
		{Key: "kept", Value: []byte("2")},
		{Key: "new", Value: []byte("x")},
	})
	if store.CodeOf(err) != store.RetCInternalError {
		t.Fatalf("Expected an internal error, got %v", err)
	}
	if err := kv.Delete("kept"); err == nil {
		t.Fatalf("Expected Delete to fail as well")
	}

	value, ok, _ := kv.Get("kept")
	if !ok || !bytes.Equal(value, []byte("1")) {
		t.Errorf("Expected the old value after a failed write, got %q (exists=%v)", value, ok)
	}
	if ok, _ := kv.Has("new"); ok {
		t.Errorf("Expected the key of a failed write to be absent")
	}

	// once the directory is back, the same write succeeds
	if err := os.Remove(snapDir); err != nil {
		t.Fatalf("Failed to remove file: %v", err)
	}
	if err := kv.Set("new", []byte("x")); err != nil {
		t.Fatalf("Set after recovery failed: %v", err)
	}
}
