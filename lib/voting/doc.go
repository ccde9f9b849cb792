// Package voting implements votes on top of the record store.
//
// A vote binds a voter to a candidate. Every (candidate, voter) pair may exist only once,
// adding or updating a vote into an existing pair fails with record.RetCDuplicate.
// All queries work on a snapshot of the votes (record.Store.List) with the functions of
// the query package. Listing queries return empty results for an empty store, the most
// and least voted candidate fail with record.RetCNoData instead. Ties between
// candidates go to the alphabetically smallest name.
package voting
