package store

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ValentinKolb/recstore/lib/db"
)

// DBFactory creates the db.KVDB a store writes to. Stores take a factory instead of a
// database so that every RAFT replica (and every reopen) gets its own instance.
type DBFactory func() (db.KVDB, error)

// IStore is the storage the record store is written against: an ordered key-value map
// with atomic batches. Keys are plain strings, values are opaque bytes.
//
// Failures of the store itself are reported as *Error, a missing key is not a failure.
type IStore interface {
	// Set inserts or updates a key–value pair.
	Set(key string, value []byte) error
	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
	// Apply executes all mutations as one write. Either all of them become visible or none.
	// If a guard does not hold when the batch is applied, nothing is written and the
	// error has the code RetCConflict.
	Apply(batch []db.Mutation, guards ...Guard) error
	// Get returns the value for a key, loaded reports whether the key exists.
	Get(key string) (value []byte, loaded bool, err error)
	// Has returns whether a key exists in the store.
	Has(key string) (loaded bool, err error)
	// Scan returns all entries whose key starts with prefix in ascending key order.
	Scan(prefix string) (entries []db.KeyValue, err error)
	// GetDBInfo returns metadata about the database underlying the store.
	// It is not guaranteed that all fields are filled in or that the information is up-to-date!
	GetDBInfo() (info db.DatabaseInfo, err error)
	// Close releases the store. The store must not be used afterwards.
	Close() error
}

// --------------------------------------------------------------------------
// Guards
// --------------------------------------------------------------------------

// Guard is a precondition of a batch. Either Key holds exactly Value, or (with Missing
// set) Key does not exist. Guards are checked in the same step the batch is applied, so
// a writer can detect that another writer changed what it read.
type Guard struct {
	Key     string
	Value   []byte
	Missing bool
}

// Holds creates a guard that requires key to hold value.
func Holds(key string, value []byte) Guard {
	return Guard{Key: key, Value: value}
}

// Absent creates a guard that requires key to not exist.
func Absent(key string) Guard {
	return Guard{Key: key, Missing: true}
}

// Check reports whether the guard holds for the current value of its key.
func (g Guard) Check(value []byte, loaded bool) bool {
	if g.Missing {
		return !loaded
	}
	return loaded && bytes.Equal(value, g.Value)
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// RetCode classifies a store failure
type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Command executed successfully.
	RetCInternalError                       // 1: Command failed due to an internal error (timeout, io, ...).
	RetCUnsupportedOperation                // 2: Operation is not supported by underlying database.
	RetCInvalidOperation                    // 3: Malformed or unknown operation.
	RetCConflict                            // 4: A guard of the batch did not hold, nothing was written.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCUnsupportedOperation:
		return "UnsupportedOperation"
	case RetCInvalidOperation:
		return "InvalidOperation"
	case RetCConflict:
		return "Conflict"
	default:
		return fmt.Sprintf("Unknown(%d)", uint64(c))
	}
}

// Error is returned by all store implementations
type Error struct {
	Code RetCode
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %s", e.Code, e.Msg)
}

// NewError creates a new store Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// CodeOf returns the code of a store error, RetCSuccess for nil and
// RetCInternalError for errors that don't come from a store.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return RetCInternalError
}

// IsConflict reports whether err is a store error with the code RetCConflict.
func IsConflict(err error) bool {
	return err != nil && CodeOf(err) == RetCConflict
}
