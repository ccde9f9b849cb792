package dstore

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/db/engines/maple"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/ValentinKolb/recstore/lib/store/dstore/internal"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

func newTestStateMachine(t *testing.T) sm.IConcurrentStateMachine {
	factory := CreateStateMaschineFactory(func() (db.KVDB, error) {
		return maple.NewMapleDB(nil), nil
	})
	fsm := factory(1, 1)
	t.Cleanup(func() { fsm.Close() })
	return fsm
}

func TestStateMachineUpdateAndLookup(t *testing.T) {
	fsm := newTestStateMachine(t)

	batch := internal.Command{
		Type: internal.CommandTBatch,
		Mutations: []db.Mutation{
			{Key: "r002/00000000000000000001", Value: []byte("ticket")},
			{Key: "r000/counter", Value: []byte{1}},
		},
	}
	del := internal.Command{
		Type:      internal.CommandTDelete,
		Mutations: []db.Mutation{{Key: "r000/counter", Delete: true}},
	}

	entries, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: batch.Serialize()},
		{Index: 2, Cmd: del.Serialize()},
		{Index: 3, Cmd: nil},
		{Index: 4, Cmd: []byte{1, 2}},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	expected := []store.RetCode{store.RetCSuccess, store.RetCSuccess, store.RetCInvalidOperation, store.RetCInternalError}
	for i, code := range expected {
		if got := store.RetCode(entries[i].Result.Value); got != code {
			t.Errorf("Entry %d: expected code %d, got %d (%s)", i, code, got, entries[i].Result.Data)
		}
	}

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: "r002/00000000000000000001"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if qr := res.(internal.QueryResult); !qr.Ok || !bytes.Equal(qr.Value, []byte("ticket")) {
		t.Errorf("Unexpected Get result: %+v", qr)
	}

	res, err = fsm.Lookup(internal.Query{Type: internal.QueryTHas, Key: "r000/counter"})
	if err != nil || res.(bool) {
		t.Errorf("Expected counter to be deleted, got %v (%v)", res, err)
	}

	res, err = fsm.Lookup(internal.Query{Type: internal.QueryTScan, Key: "r002/"})
	if err != nil {
		t.Fatalf("Scan lookup failed: %v", err)
	}
	if kvs := res.([]db.KeyValue); len(kvs) != 1 || kvs[0].Key != "r002/00000000000000000001" {
		t.Errorf("Unexpected Scan result: %+v", kvs)
	}

	if _, err := fsm.Lookup("not a query"); err == nil {
		t.Errorf("Expected an error for an invalid query type")
	}
	if _, err := fsm.Lookup(internal.Query{Type: internal.QueryType(99)}); err == nil {
		t.Errorf("Expected an error for an unknown query")
	}
}

func TestStateMachineSnapshot(t *testing.T) {
	fsm := newTestStateMachine(t)

	set := internal.Command{
		Type:      internal.CommandTSet,
		Mutations: []db.Mutation{{Key: "k", Value: []byte("v")}},
	}
	if _, err := fsm.Update([]sm.Entry{{Index: 5, Cmd: set.Serialize()}}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	var buf bytes.Buffer
	if err := fsm.SaveSnapshot(nil, &buf, nil, nil); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	restored := newTestStateMachine(t)
	if err := restored.RecoverFromSnapshot(&buf, nil, nil); err != nil {
		t.Fatalf("RecoverFromSnapshot failed: %v", err)
	}

	res, err := restored.Lookup(internal.Query{Type: internal.QueryTGet, Key: "k"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if qr := res.(internal.QueryResult); !qr.Ok || !bytes.Equal(qr.Value, []byte("v")) {
		t.Errorf("Unexpected value after recovery: %+v", qr)
	}
}

// Two replicas read counter 0 and both propose id 1. Only the entry committed first
// may be applied, the second one must be rejected as a whole.
func TestStateMachineRejectsStaleGuard(t *testing.T) {
	fsm := newTestStateMachine(t)

	insert := func(value string) internal.Command {
		return internal.Command{
			Type: internal.CommandTBatch,
			Mutations: []db.Mutation{
				{Key: "r011/00000000000000000001", Value: []byte(value)},
				{Key: "r010/counter", Value: []byte{0, 0, 0, 0, 0, 0, 0, 1}},
			},
			Guards: []store.Guard{store.Absent("r010/counter")},
		}
	}
	a, b := insert("from-a"), insert("from-b")

	entries, err := fsm.Update([]sm.Entry{
		{Index: 1, Cmd: b.Serialize()},
		{Index: 2, Cmd: a.Serialize()},
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got := store.RetCode(entries[0].Result.Value); got != store.RetCSuccess {
		t.Errorf("Expected the first insert to succeed, got %s", got)
	}
	if got := store.RetCode(entries[1].Result.Value); got != store.RetCConflict {
		t.Errorf("Expected the second insert to conflict, got %s", got)
	}

	res, err := fsm.Lookup(internal.Query{Type: internal.QueryTGet, Key: "r011/00000000000000000001"})
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if qr := res.(internal.QueryResult); !bytes.Equal(qr.Value, []byte("from-b")) {
		t.Errorf("Expected the first committed record to survive, got %q", qr.Value)
	}
}
