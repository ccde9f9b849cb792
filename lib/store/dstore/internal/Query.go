package internal

import (
	"fmt"

	"github.com/ValentinKolb/recstore/lib/db"
)

// QueryType defines the possible queries for the state machine.
type QueryType uint8

const (
	QueryTGet       QueryType = iota // Retrieve an entry by key.
	QueryTHas                        // Check if a key exists.
	QueryTScan                       // Retrieve all entries with a key prefix, in key order.
	QueryTGetDBInfo                  // Retrieve metadata about the database underlying the machine.
)

var queryTypeNames = [...]string{
	QueryTGet:       "Get",
	QueryTHas:       "Has",
	QueryTScan:      "Scan",
	QueryTGetDBInfo: "GetDBInfo",
}

func (q QueryType) String() string {
	if int(q) < len(queryTypeNames) {
		return queryTypeNames[q]
	}
	return fmt.Sprintf("Unknown(%d)", q)
}

// ToDBFeature returns the db.Feature a query needs. GetDBInfo works on every
// database, so it (and unknown queries) report false.
func (q QueryType) ToDBFeature() (db.Feature, bool) {
	switch q {
	case QueryTGet:
		return db.FeatureGet, true
	case QueryTHas:
		return db.FeatureHas, true
	case QueryTScan:
		return db.FeatureScan, true
	default:
		return 0, false
	}
}

// Query is a read-only request, sent via SyncRead or StaleRead. Queries never leave the
// node, so unlike Command they need no wire format.
type Query struct {
	Type QueryType
	Key  string // key, or prefix for QueryTScan, empty for QueryTGetDBInfo
}

// QueryResult is the result of QueryTGet. Has, Scan and GetDBInfo return
// bool, []db.KeyValue and db.DatabaseInfo.
type QueryResult struct {
	Ok    bool
	Value []byte
}
