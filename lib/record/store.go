package record

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
)

// DefaultMaxPayload is the largest encoded record accepted by a store.
const DefaultMaxPayload = 1024

// Record is implemented by the pointer type of every stored record.
type Record interface {
	RecordID() uint64
	SetRecordID(id uint64)
}

// Ptr constrains PT to *T implementing Record.
type Ptr[T any] interface {
	*T
	Record
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	clock      Clock
	codec      Codec
	maxPayload int
	service    string
	log        logger.ILogger
}

// Option configures a Store
type Option func(*options)

// WithClock sets the clock used for creation and modification timestamps.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCodec sets the codec used to encode records.
func WithCodec(c Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithMaxPayload sets the largest accepted encoded record in bytes.
func WithMaxPayload(n int) Option {
	return func(o *options) { o.maxPayload = n }
}

// WithService names the service the store belongs to. The name is the service label
// of the metrics, so stores of the same kind in different services are told apart.
func WithService(name string) Option {
	return func(o *options) { o.service = name }
}

// WithLogger sets the logger of the store.
func WithLogger(l logger.ILogger) Option {
	return func(o *options) { o.log = l }
}

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// maxAttempts bounds how often a write is retried after a conflicting write of
// another writer on the same key-value store
const maxAttempts = 16

// Store maps ids to records of type T. Ids come from a counter that lives in its own
// region and is never decremented, so ids are unique and strictly increasing even
// across deletes and Clear.
//
// Every write is guarded by the values it read (the counter for inserts, the old record
// for updates and deletes). If another writer on the same key-value store changed them
// in between, the write is rejected by the store and run again on fresh data.
//
// Thread-safety: All operations are serialized by a mutex, a Store can be shared by
// several goroutines. Stores in different processes may share one replicated
// key-value store.
type Store[T any, PT Ptr[T]] struct {
	mu      sync.Mutex
	kv      store.IStore
	counter Region
	data    Region
	unique  *uniqueIndex[T]
	opts    options
	metrics storeMetrics
}

// uniqueIndex maps the unique key of every record to the id of the record
type uniqueIndex[T any] struct {
	region Region
	key    func(T) string
	dup    func(rec T, holder uint64) error
}

func (u *uniqueIndex[T]) entry(rec T) string {
	return u.region.Prefix() + u.key(rec)
}

type storeMetrics struct {
	inserts, updates, deletes, clears, scans *metrics.Counter
	failures, conflicts                      *metrics.Counter
	payloadSize                              *metrics.Histogram
}

func newStoreMetrics(service, region string) storeMetrics {
	name := func(metric, op string) string {
		if op == "" {
			return fmt.Sprintf(`%s{service=%q,region=%q}`, metric, service, region)
		}
		return fmt.Sprintf(`%s{service=%q,region=%q,op=%q}`, metric, service, region, op)
	}
	return storeMetrics{
		inserts:     metrics.GetOrCreateCounter(name("recstore_record_ops_total", "insert")),
		updates:     metrics.GetOrCreateCounter(name("recstore_record_ops_total", "update")),
		deletes:     metrics.GetOrCreateCounter(name("recstore_record_ops_total", "delete")),
		clears:      metrics.GetOrCreateCounter(name("recstore_record_ops_total", "clear")),
		scans:       metrics.GetOrCreateCounter(name("recstore_record_ops_total", "scan")),
		failures:    metrics.GetOrCreateCounter(name("recstore_record_failures_total", "")),
		conflicts:   metrics.GetOrCreateCounter(name("recstore_record_conflicts_total", "")),
		payloadSize: metrics.GetOrCreateHistogram(name("recstore_record_payload_bytes", "")),
	}
}

// New creates a store that keeps its counter in the counter region and its records in
// the data region of kv. Both regions must be distinct.
func New[T any, PT Ptr[T]](kv store.IStore, counter, data Region, opts ...Option) (*Store[T, PT], error) {
	if kv == nil {
		return nil, Errorf(RetCInvalidInput, "no key-value store given")
	}
	if counter.ID == data.ID {
		return nil, Errorf(RetCInvalidInput, "counter and data share region %d", counter.ID)
	}

	o := options{
		clock:      SystemClock{},
		codec:      MsgpackCodec{},
		maxPayload: DefaultMaxPayload,
		service:    "default",
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetLogger("record")
	}
	if o.maxPayload <= 0 {
		return nil, Errorf(RetCInvalidInput, "max payload must be positive, got %d", o.maxPayload)
	}

	s := &Store[T, PT]{
		kv:      kv,
		counter: counter,
		data:    data,
		opts:    o,
		metrics: newStoreMetrics(o.service, data.Name),
	}

	last, _, err := s.lastID()
	if err != nil {
		return nil, err
	}
	o.log.Infof("record store %q of service %s ready (counter region %d, data region %d, last id %d, codec %s)",
		data.Name, o.service, counter.ID, data.ID, last, o.codec.Name())

	return s, nil
}

// Unique makes key(rec) unique among the records of the store. The index lives in the
// index region, records that are already stored are indexed right away. Inserts and
// updates that would take a key held by another record fail with the error of dup.
// Unique must be called before the store is used.
func (s *Store[T, PT]) Unique(index Region, key func(T) string, dup func(rec T, holder uint64) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index.ID == s.counter.ID || index.ID == s.data.ID {
		return Errorf(RetCInvalidInput, "index of %q shares region %d", s.data.Name, index.ID)
	}
	u := &uniqueIndex[T]{region: index, key: key, dup: dup}

	records, err := s.kv.Scan(s.data.Prefix())
	if err != nil {
		return storageErr("build index", err)
	}
	indexed, err := s.kv.Scan(index.Prefix())
	if err != nil {
		return storageErr("build index", err)
	}
	known := make(map[string]bool, len(indexed))
	for _, e := range indexed {
		known[e.Key] = true
	}

	var missing []db.Mutation
	for _, e := range records {
		rec, err := s.decode(e.Value)
		if err != nil {
			return err
		}
		if k := u.entry(rec); !known[k] {
			known[k] = true
			missing = append(missing, db.Mutation{Key: k, Value: encodeID(PT(&rec).RecordID())})
		}
	}
	if err := s.kv.Apply(missing); err != nil {
		return storageErr("build index", err)
	}
	if len(missing) > 0 {
		s.opts.log.Infof("indexed %d records of %q", len(missing), s.data.Name)
	}

	s.unique = u
	return nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Insert assigns the next id, builds the record with it and stores record and counter
// in one batch. If build fails its error is returned unchanged and nothing is written.
// build runs again with a new id if another writer inserted in the meantime.
func (s *Store[T, PT]) Insert(build func(id uint64, now uint64) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.retry("insert", func() (T, error) { return s.insert(build) })
	if err != nil {
		var zero T
		return zero, s.fail(err)
	}
	s.metrics.inserts.Inc()
	return rec, nil
}

func (s *Store[T, PT]) insert(build func(id uint64, now uint64) (T, error)) (T, error) {
	var zero T

	current, counterGuard, err := s.lastID()
	if err != nil {
		return zero, err
	}
	next := current + 1
	if next == 0 {
		return zero, Errorf(RetCInternal, "id space of %q exhausted", s.data.Name)
	}

	rec, err := build(next, s.opts.clock.Now())
	if err != nil {
		return zero, err
	}
	PT(&rec).SetRecordID(next)

	value, err := s.encode(&rec)
	if err != nil {
		return zero, err
	}

	batch := []db.Mutation{
		{Key: s.data.RecordKey(next), Value: value},
		{Key: s.counter.CounterKey(), Value: encodeID(next)},
	}
	guards := []store.Guard{counterGuard}

	if s.unique != nil {
		entry := s.unique.entry(rec)
		if err := s.claim(entry, rec, next); err != nil {
			return zero, err
		}
		batch = append(batch, db.Mutation{Key: entry, Value: encodeID(next)})
		guards = append(guards, store.Absent(entry))
	}

	if err := s.kv.Apply(batch, guards...); err != nil {
		return zero, applyErr("insert", err)
	}
	return s.decode(value)
}

// Update loads the record, lets mutate change it and stores it under the same id.
// The id cannot be changed by mutate. If mutate fails its error is returned unchanged
// and nothing is written. mutate runs again on the current record if another writer
// changed it in the meantime.
func (s *Store[T, PT]) Update(id uint64, mutate func(rec *T, now uint64) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.retry("update", func() (T, error) { return s.update(id, mutate) })
	if err != nil {
		var zero T
		return zero, s.fail(err)
	}
	s.metrics.updates.Inc()
	return rec, nil
}

func (s *Store[T, PT]) update(id uint64, mutate func(rec *T, now uint64) error) (T, error) {
	var zero T

	key := s.data.RecordKey(id)
	old, rec, err := s.load(id)
	if err != nil {
		return zero, err
	}

	var oldEntry string
	if s.unique != nil {
		oldEntry = s.unique.entry(rec)
	}

	if err := mutate(&rec, s.opts.clock.Now()); err != nil {
		return zero, err
	}
	PT(&rec).SetRecordID(id)

	value, err := s.encode(&rec)
	if err != nil {
		return zero, err
	}

	batch := []db.Mutation{{Key: key, Value: value}}
	guards := []store.Guard{store.Holds(key, old)}

	if s.unique != nil {
		if entry := s.unique.entry(rec); entry != oldEntry {
			if err := s.claim(entry, rec, id); err != nil {
				return zero, err
			}
			batch = append(batch,
				db.Mutation{Key: entry, Value: encodeID(id)},
				db.Mutation{Key: oldEntry, Delete: true},
			)
			guards = append(guards, store.Absent(entry))
		}
	}

	if err := s.kv.Apply(batch, guards...); err != nil {
		return zero, applyErr("update", err)
	}
	return s.decode(value)
}

// Delete removes the record and returns it.
func (s *Store[T, PT]) Delete(id uint64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.retry("delete", func() (T, error) { return s.delete(id) })
	if err != nil {
		var zero T
		return zero, s.fail(err)
	}
	s.metrics.deletes.Inc()
	return rec, nil
}

func (s *Store[T, PT]) delete(id uint64) (T, error) {
	var zero T

	key := s.data.RecordKey(id)
	old, rec, err := s.load(id)
	if err != nil {
		return zero, err
	}

	batch := []db.Mutation{{Key: key, Delete: true}}
	if s.unique != nil {
		batch = append(batch, db.Mutation{Key: s.unique.entry(rec), Delete: true})
	}

	if err := s.kv.Apply(batch, store.Holds(key, old)); err != nil {
		return zero, applyErr("delete", err)
	}
	return rec, nil
}

// Clear removes all records (and their index entries) in one batch. The counter is
// kept, so new ids continue after the last assigned one.
func (s *Store[T, PT]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefixes := []string{s.data.Prefix()}
	if s.unique != nil {
		prefixes = append(prefixes, s.unique.region.Prefix())
	}

	var batch []db.Mutation
	for _, prefix := range prefixes {
		entries, err := s.kv.Scan(prefix)
		if err != nil {
			return s.fail(storageErr("clear", err))
		}
		for _, e := range entries {
			batch = append(batch, db.Mutation{Key: e.Key, Delete: true})
		}
	}
	if err := s.kv.Apply(batch); err != nil {
		return s.fail(storageErr("clear", err))
	}

	s.metrics.clears.Inc()
	s.opts.log.Debugf("cleared %d keys from %q", len(batch), s.data.Name)
	return nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get returns the record with the given id.
func (s *Store[T, PT]) Get(id uint64) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.get(id)
}

// List returns all records in ascending id order. The result is never nil.
func (s *Store[T, PT]) List() ([]T, error) {
	records := []T{}
	err := s.Each(func(rec T) bool {
		records = append(records, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Each calls fn for every record in ascending id order until fn returns false.
// fn runs without holding the lock of the store.
func (s *Store[T, PT]) Each(fn func(rec T) bool) error {
	s.mu.Lock()
	entries, err := s.kv.Scan(s.data.Prefix())
	s.mu.Unlock()
	if err != nil {
		return s.fail(storageErr("scan", err))
	}
	s.metrics.scans.Inc()

	for _, e := range entries {
		rec, err := s.decode(e.Value)
		if err != nil {
			return s.fail(err)
		}
		if !fn(rec) {
			return nil
		}
	}
	return nil
}

// Count returns the number of stored records.
func (s *Store[T, PT]) Count() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.kv.Scan(s.data.Prefix())
	if err != nil {
		return 0, s.fail(storageErr("count", err))
	}
	return uint64(len(entries)), nil
}

// LastID returns the last assigned id (0 if no record was ever inserted).
func (s *Store[T, PT]) LastID() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, _, err := s.lastID()
	return last, err
}

// Name returns the name of the data region.
func (s *Store[T, PT]) Name() string {
	return s.data.Name
}

// --------------------------------------------------------------------------
// Helpers (callers hold the lock)
// --------------------------------------------------------------------------

func (s *Store[T, PT]) get(id uint64) (T, error) {
	_, rec, err := s.load(id)
	return rec, err
}

// load returns the stored bytes of a record together with the decoded record
func (s *Store[T, PT]) load(id uint64) ([]byte, T, error) {
	var zero T

	value, ok, err := s.kv.Get(s.data.RecordKey(id))
	if err != nil {
		return nil, zero, storageErr("get", err)
	}
	if !ok {
		return nil, zero, Errorf(RetCNotFound, "%s %d not found", s.data.Name, id)
	}
	rec, err := s.decode(value)
	return value, rec, err
}

// lastID returns the counter and the guard that fails once another writer moves it.
func (s *Store[T, PT]) lastID() (uint64, store.Guard, error) {
	key := s.counter.CounterKey()

	value, ok, err := s.kv.Get(key)
	if err != nil {
		return 0, store.Guard{}, storageErr("read counter", err)
	}
	if !ok {
		return 0, store.Absent(key), nil
	}
	if len(value) != 8 {
		return 0, store.Guard{}, Errorf(RetCInternal, "counter of %q is corrupt (%d bytes)", s.data.Name, len(value))
	}
	return binary.BigEndian.Uint64(value), store.Holds(key, value), nil
}

// claim fails with the duplicate error if the unique entry is held by another record than id
func (s *Store[T, PT]) claim(entry string, rec T, id uint64) error {
	value, ok, err := s.kv.Get(entry)
	if err != nil {
		return storageErr("read index", err)
	}
	if !ok || len(value) != 8 {
		return nil
	}
	if holder := binary.BigEndian.Uint64(value); holder != id {
		return s.unique.dup(rec, holder)
	}
	return nil
}

// retry runs op until it does not fail with a conflict. Callers hold the lock.
func (s *Store[T, PT]) retry(name string, op func() (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		rec, err := op()
		if !store.IsConflict(err) {
			return rec, err
		}
		s.metrics.conflicts.Inc()
		if attempt == maxAttempts {
			return rec, Errorf(RetCInternal, "%s %s: still conflicting after %d attempts", name, s.data.Name, attempt)
		}
		s.opts.log.Debugf("%s %s: concurrent write, retrying (%d/%d)", name, s.data.Name, attempt, maxAttempts)
	}
}

func (s *Store[T, PT]) encode(rec *T) ([]byte, error) {
	value, err := s.opts.codec.Marshal(rec)
	if err != nil {
		return nil, Errorf(RetCInvalidInput, "encode %s: %v", s.data.Name, err)
	}
	s.metrics.payloadSize.Update(float64(len(value)))
	if len(value) > s.opts.maxPayload {
		return nil, Errorf(RetCInvalidInput, "%s is too large (%d bytes, max %d)", s.data.Name, len(value), s.opts.maxPayload)
	}
	return value, nil
}

func (s *Store[T, PT]) decode(value []byte) (T, error) {
	var rec T
	if err := s.opts.codec.Unmarshal(value, &rec); err != nil {
		return rec, Errorf(RetCInternal, "decode %s: %v", s.data.Name, err)
	}
	return rec, nil
}

func (s *Store[T, PT]) fail(err error) error {
	s.metrics.failures.Inc()
	if CodeOf(err) == RetCInternal {
		s.opts.log.Errorf("%s: %v", s.data.Name, err)
	}
	return err
}

