package util

import (
	"bytes"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	entries := []SnapshotEntry{
		{Key: "r002/00000000000000000001", Index: 3, Value: []byte("ticket-1")},
		{Key: "r000/counter", Index: 4, Value: []byte{1, 0, 0, 0, 0, 0, 0, 0}},
		{Key: "empty", Index: 5, Value: []byte{}},
	}

	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, "TESTDB\x00", 1, 42, entries); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	var loaded []SnapshotEntry
	idx, err := ReadSnapshot(&buf, "TESTDB\x00", 1, func(e SnapshotEntry) {
		loaded = append(loaded, e)
	})
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if idx != 42 {
		t.Errorf("Expected write index 42, got %d", idx)
	}
	if len(loaded) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(loaded))
	}
	for i := range entries {
		if loaded[i].Key != entries[i].Key || loaded[i].Index != entries[i].Index || !bytes.Equal(loaded[i].Value, entries[i].Value) {
			t.Errorf("Entry %d mismatch: got %+v, want %+v", i, loaded[i], entries[i])
		}
	}
}

func TestSnapshotRejectsForeignFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, "OTHERDB\x00", 1, 0, nil); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	if _, err := ReadSnapshot(bytes.NewReader(buf.Bytes()), "TESTDB\x00", 1, func(SnapshotEntry) {}); err == nil {
		t.Error("Expected magic number mismatch")
	}

	buf.Reset()
	if err := WriteSnapshot(&buf, "TESTDB\x00", 2, 0, nil); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	if _, err := ReadSnapshot(&buf, "TESTDB\x00", 1, func(SnapshotEntry) {}); err == nil {
		t.Error("Expected version mismatch")
	}
}
