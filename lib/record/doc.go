// Package record implements a durable, auto-incrementing record store on top of a
// store.IStore.
//
// A Store keeps two regions of the key-value store: a counter region with a single
// counter cell and a data region that maps ids to encoded records. Inserting a record
// reads the counter, assigns counter+1 as id and writes the record together with the new
// counter value in one batch (store.IStore.Apply), so a counter bump without a record (or
// the other way round) is never observable. The counter is never decremented, ids stay
// unique after deletes and Clear.
//
// Records are encoded with a Codec (msgpack by default) and checked against a maximum
// payload size before anything is written. Every failure is a *Error with a RetCode:
//
//	RetCInvalidInput  structural precondition violated
//	RetCNotFound      the id does not exist
//	RetCDuplicate     a uniqueness rule would be violated
//	RetCNoData        a query needs at least one record
//	RetCInternal      the storage layer failed
//
// Use errors.Is with the sentinels (ErrNotFound, ...) to test for a code.
//
// Regions are identified by fixed handles (RegionID). A Layout makes sure that no handle
// is used twice within a process.
package record
