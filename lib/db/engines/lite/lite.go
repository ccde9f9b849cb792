package lite

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
	_ "modernc.org/sqlite"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	magicNum    = "LITEDB\x00\x00" // File format identifier for snapshots
	liteVersion = 1                // Snapshot version
)

var log = logger.GetLogger("lite")

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	k   TEXT PRIMARY KEY,
	v   BLOB NOT NULL,
	idx INTEGER NOT NULL
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS meta (
	id        INTEGER PRIMARY KEY CHECK (id = 0),
	write_idx INTEGER NOT NULL
);
INSERT OR IGNORE INTO meta (id, write_idx) VALUES (0, 0);
`

const (
	stmtUpsert = `INSERT INTO kv (k, v, idx) VALUES (?, ?, ?)
ON CONFLICT(k) DO UPDATE SET v = excluded.v, idx = excluded.idx WHERE excluded.idx >= kv.idx`
	stmtDelete   = `DELETE FROM kv WHERE k = ? AND idx <= ?`
	stmtWriteIdx = `UPDATE meta SET write_idx = MAX(write_idx, ?) WHERE id = 0`
)

// --------------------------------------------------------------------------
// Core Lite database structure
// --------------------------------------------------------------------------

// liteImpl stores all entries in a single SQLite file.
// Every write is its own transaction, so the content survives a restart.
type liteImpl struct {
	sql       *sql.DB
	path      string
	currIndex atomic.Uint64
}

// DBOptions configures the liteImpl behavior during initialization
type DBOptions struct {
	Path string // Location of the database file (required)
}

// NewLiteDB opens (or creates) the SQLite database at opts.Path.
// The write index stored in the file is restored.
func NewLiteDB(opts *DBOptions) (db.KVDB, error) {
	if opts == nil || opts.Path == "" {
		return nil, fmt.Errorf("lite: database path is required")
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("lite: create directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("lite: open sqlite: %w", err)
	}

	// a single connection serializes all statements
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("lite: %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lite: create schema: %w", err)
	}

	l := &liteImpl{sql: conn, path: opts.Path}

	var idx int64
	if err := conn.QueryRow(`SELECT write_idx FROM meta WHERE id = 0`).Scan(&idx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("lite: read write index: %w", err)
	}
	l.currIndex.Store(uint64(idx))

	return l, nil
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Write Operations
// --------------------------------------------------------------------------

// Set inserts or updates an entry. Stale writes are ignored by the upsert condition.
func (l *liteImpl) Set(key string, value []byte, writeIndex uint64) {
	l.Apply([]db.Mutation{{Key: key, Value: value}}, writeIndex)
}

// Delete removes an entry unless it was written with a higher index.
func (l *liteImpl) Delete(key string, writeIndex uint64) {
	l.Apply([]db.Mutation{{Key: key, Delete: true}}, writeIndex)
}

// Apply runs all mutations inside one transaction.
func (l *liteImpl) Apply(batch []db.Mutation, writeIndex uint64) {
	tx, err := l.sql.Begin()
	if err != nil {
		log.Panicf("begin transaction: %v", err)
	}
	defer tx.Rollback()

	for _, m := range batch {
		if m.Delete {
			_, err = tx.Exec(stmtDelete, m.Key, int64(writeIndex))
		} else {
			value := m.Value
			if value == nil {
				value = []byte{} // nil would be stored as NULL
			}
			_, err = tx.Exec(stmtUpsert, m.Key, value, int64(writeIndex))
		}
		if err != nil {
			log.Panicf("apply mutation for key %q: %v", m.Key, err)
		}
	}

	if _, err := tx.Exec(stmtWriteIdx, int64(writeIndex)); err != nil {
		log.Panicf("update write index: %v", err)
	}

	if err := tx.Commit(); err != nil {
		log.Panicf("commit transaction: %v", err)
	}

	l.raiseWriteIdx(writeIndex)
}

// --------------------------------------------------------------------------
// Core KVDB Interface Methods - Read Operations
// --------------------------------------------------------------------------

// Get retrieves a value for a key.
func (l *liteImpl) Get(key string) ([]byte, bool) {
	var value []byte
	err := l.sql.QueryRow(`SELECT v FROM kv WHERE k = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		log.Panicf("get key %q: %v", key, err)
	}
	if value == nil {
		value = []byte{}
	}
	return value, true
}

// Has checks if a key exists in the database.
func (l *liteImpl) Has(key string) bool {
	var one int
	err := l.sql.QueryRow(`SELECT 1 FROM kv WHERE k = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false
	}
	if err != nil {
		log.Panicf("has key %q: %v", key, err)
	}
	return true
}

// Scan visits all entries with the given prefix in ascending key order.
// The rows are read completely before fn is called, the single connection is
// released again before any callback runs.
func (l *liteImpl) Scan(prefix string, fn func(key string, value []byte) bool) {
	var (
		rows *sql.Rows
		err  error
	)
	if end, ok := util.PrefixEnd(prefix); ok {
		rows, err = l.sql.Query(`SELECT k, v FROM kv WHERE k >= ? AND k < ? ORDER BY k`, prefix, end)
	} else {
		rows, err = l.sql.Query(`SELECT k, v FROM kv WHERE k >= ? ORDER BY k`, prefix)
	}
	if err != nil {
		log.Panicf("scan prefix %q: %v", prefix, err)
	}

	matches, err := collectRows(rows)
	if err != nil {
		log.Panicf("scan prefix %q: %v", prefix, err)
	}

	for _, kv := range matches {
		if !fn(kv.Key, kv.Value) {
			return
		}
	}
}

func collectRows(rows *sql.Rows) ([]db.KeyValue, error) {
	defer rows.Close()

	var matches []db.KeyValue
	for rows.Next() {
		var kv db.KeyValue
		if err := rows.Scan(&kv.Key, &kv.Value); err != nil {
			return nil, err
		}
		if kv.Value == nil {
			kv.Value = []byte{}
		}
		matches = append(matches, kv)
	}
	return matches, rows.Err()
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes all entries in the shared snapshot format.
func (l *liteImpl) Save(w io.Writer) error {
	tx, err := l.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var writeIdx int64
	if err := tx.QueryRow(`SELECT write_idx FROM meta WHERE id = 0`).Scan(&writeIdx); err != nil {
		return err
	}

	rows, err := tx.Query(`SELECT k, idx, v FROM kv ORDER BY k`)
	if err != nil {
		return err
	}
	var entries []util.SnapshotEntry
	for rows.Next() {
		var (
			e   util.SnapshotEntry
			idx int64
		)
		if err := rows.Scan(&e.Key, &idx, &e.Value); err != nil {
			rows.Close()
			return err
		}
		e.Index = uint64(idx)
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	// release the connection before writing to w
	if err := tx.Commit(); err != nil {
		return err
	}

	return util.WriteSnapshot(w, magicNum, liteVersion, uint64(writeIdx), entries)
}

// Load replaces the content of the database with the snapshot.
// If the snapshot is invalid the transaction is rolled back and the current content is kept.
func (l *liteImpl) Load(r io.Reader) error {
	tx, err := l.sql.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM kv`); err != nil {
		return err
	}

	insert, err := tx.Prepare(`INSERT OR REPLACE INTO kv (k, v, idx) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insert.Close()

	var insertErr error
	writeIdx, err := util.ReadSnapshot(r, magicNum, liteVersion, func(e util.SnapshotEntry) {
		if insertErr != nil {
			return
		}
		_, insertErr = insert.Exec(e.Key, e.Value, int64(e.Index))
	})
	if err != nil {
		return err
	}
	if insertErr != nil {
		return insertErr
	}

	if _, err := tx.Exec(`UPDATE meta SET write_idx = ? WHERE id = 0`, int64(writeIdx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	l.currIndex.Store(writeIdx)
	return nil
}

// --------------------------------------------------------------------------
// KVDB Interface Implementation - Features and Metadata
// --------------------------------------------------------------------------

// GetInfo returns statistics about the database. Unlike maple, the sizes are exact.
func (l *liteImpl) GetInfo() db.DatabaseInfo {
	var keys, payload int64
	err := l.sql.QueryRow(`SELECT COUNT(*), COALESCE(SUM(LENGTH(k) + LENGTH(v)), 0) FROM kv`).Scan(&keys, &payload)
	if err != nil {
		log.Errorf("read database info: %v", err)
	}

	// the file size stays 0 if one of the pragmas fails
	var pageCount, pageSize int64
	if err := l.sql.QueryRow(`PRAGMA page_count`).Scan(&pageCount); err != nil {
		log.Errorf("read page count: %v", err)
	}
	if err := l.sql.QueryRow(`PRAGMA page_size`).Scan(&pageSize); err != nil {
		log.Errorf("read page size: %v", err)
		pageCount = 0
	}

	meta := &struct {
		CurrentWriteIndex uint64 `json:"current_write_index"`
		Path              string `json:"path"`
		FileSizeBytes     int64  `json:"file_size_bytes"`
	}{
		CurrentWriteIndex: l.currIndex.Load(),
		Path:              l.path,
		FileSizeBytes:     pageCount * pageSize,
	}

	return db.DatabaseInfo{
		SizeBytes: int(payload),
		Keys:      int(keys),
		DbType:    db.ImplLite,
		SupportedFeatures: []db.Feature{
			db.FeatureSet, db.FeatureGet, db.FeatureDelete, db.FeatureHas,
			db.FeatureScan, db.FeatureApply,
			db.FeatureSave, db.FeatureLoad, db.FeatureDurable,
		},
		Metadata: meta,
	}
}

// SupportsFeature checks if this implementation supports a specific KVDB feature
func (l *liteImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureHas |
		db.FeatureScan |
		db.FeatureApply |
		db.FeatureSave |
		db.FeatureLoad |
		db.FeatureDurable
	return supportedFeatures&feature == feature
}

// Close closes the database file
func (l *liteImpl) Close() error {
	return l.sql.Close()
}

// --------------------------------------------------------------------------
// Index Management
// --------------------------------------------------------------------------

// SetWriteIdx raises the write index (in memory and in the file).
func (l *liteImpl) SetWriteIdx(newIdx uint64) {
	if newIdx <= l.currIndex.Load() {
		return
	}
	if _, err := l.sql.Exec(stmtWriteIdx, int64(newIdx)); err != nil {
		log.Panicf("update write index: %v", err)
	}
	l.raiseWriteIdx(newIdx)
}

func (l *liteImpl) raiseWriteIdx(newIdx uint64) {
	for {
		currIdx := l.currIndex.Load()
		if newIdx <= currIdx {
			return
		}
		if l.currIndex.CompareAndSwap(currIdx, newIdx) {
			return
		}
	}
}

// WriteIdx returns the current index of the database
func (l *liteImpl) WriteIdx() uint64 {
	return l.currIndex.Load()
}
