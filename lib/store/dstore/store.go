package dstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/ValentinKolb/recstore/lib/store/dstore/internal"
	"github.com/lni/dragonboat/v4"
	"github.com/lni/dragonboat/v4/client"
	"github.com/lni/dragonboat/v4/config"
	"github.com/lni/dragonboat/v4/logger"
	sm "github.com/lni/dragonboat/v4/statemachine"
)

var (
	retries = 5
	log     = logger.GetLogger("store")
)

// leaderPollInterval is how often Start checks whether the shard has a leader
const leaderPollInterval = 50 * time.Millisecond

// storeImpl implements store.IStore on top of a RAFT shard of a dragonboat NodeHost.
type storeImpl struct {
	nh      *dragonboat.NodeHost
	shardID uint64
	cs      *client.Session
	timeout time.Duration
}

// Start starts the local replica of cfg.ShardID and returns the store for it.
// It waits up to timeout for the shard to elect a leader. A shard without a leader
// (e.g. the other members are not up yet) is only logged, requests are retried
// until one is elected.
func Start(
	nh *dragonboat.NodeHost,
	cfg config.Config,
	members map[uint64]string,
	dbFactory store.DBFactory,
	timeout time.Duration,
) (store.IStore, error) {
	if err := nh.StartConcurrentReplica(members, false, CreateStateMaschineFactory(dbFactory), cfg); err != nil {
		return nil, fmt.Errorf("dstore: start replica of shard %d: %w", cfg.ShardID, err)
	}

	if !waitForLeader(nh, cfg.ShardID, timeout) {
		log.Warningf("shard %d has no leader after %s", cfg.ShardID, timeout)
	}
	return NewDistributedStore(nh, cfg.ShardID, timeout), nil
}

func waitForLeader(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if _, _, valid, err := nh.GetLeaderID(shardID); err == nil && valid {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(leaderPollInterval)
	}
}

// NewDistributedStore returns the store of a shard that is already started on nh.
// Reads are linearizable (SyncRead), only GetDBInfo uses stale reads.
func NewDistributedStore(nh *dragonboat.NodeHost, shardID uint64, timeout time.Duration) store.IStore {
	return &storeImpl{
		nh:      nh,
		shardID: shardID,
		cs:      nh.GetNoOPSession(shardID),
		timeout: timeout,
	}
}

// --------------------------------------------------------------------------
// Requests
// --------------------------------------------------------------------------

// withRetry runs op with a fresh timeout until it succeeds or fails with something
// other than ErrSystemBusy. Busy requests are retried up to retries times.
func (s *storeImpl) withRetry(name string, op func(ctx context.Context) error) error {
	for i := 0; i < retries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := op(ctx)
		cancel()

		if !errors.Is(err, dragonboat.ErrSystemBusy) {
			return toStoreError(err)
		}
		log.Infof("shard %d: %s: system busy, retrying (%d/%d)...", s.shardID, name, i+1, retries)
		time.Sleep(s.timeout / 10)
	}
	return store.NewError(store.RetCInternalError, fmt.Sprintf("%s: system busy after %d attempts", name, retries))
}

// toStoreError keeps errors of the state machine and wraps dragonboat errors
func toStoreError(err error) error {
	if err == nil {
		return nil
	}
	var se *store.Error
	if errors.As(err, &se) {
		return se
	}
	if errors.Is(err, dragonboat.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return store.NewError(store.RetCInternalError, "timeout")
	}
	return store.NewError(store.RetCInternalError, err.Error())
}

// write proposes cmd and waits until it is applied. The result code of the
// state machine becomes the error code.
func (s *storeImpl) write(cmd internal.Command) error {
	data := cmd.Serialize()

	var res sm.Result
	err := s.withRetry("propose "+cmd.Type.String(), func(ctx context.Context) (err error) {
		res, err = s.nh.SyncPropose(ctx, s.cs, data)
		return err
	})
	if err != nil {
		return err
	}
	if code := store.RetCode(res.Value); code != store.RetCSuccess {
		return store.NewError(code, string(res.Data))
	}
	return nil
}

// read runs a query and converts the answer of the state machine to R.
// With stale set, the local replica is read without a quorum check.
func read[R any](s *storeImpl, q internal.Query, stale bool) (R, error) {
	var zero R

	var res interface{}
	err := s.withRetry("read "+q.Type.String(), func(ctx context.Context) (err error) {
		if stale {
			res, err = s.nh.StaleRead(s.shardID, q)
		} else {
			res, err = s.nh.SyncRead(ctx, s.shardID, q)
		}
		return err
	})
	if err != nil {
		return zero, err
	}

	casted, ok := res.(R)
	if !ok {
		return zero, store.NewError(store.RetCInternalError,
			fmt.Sprintf("unexpected type: received %T, expected %T", res, zero))
	}
	return casted, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docs see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, value []byte) error {
	return s.write(internal.Command{
		Type:      internal.CommandTSet,
		Mutations: []db.Mutation{{Key: key, Value: value}},
	})
}

func (s *storeImpl) Delete(key string) error {
	return s.write(internal.Command{
		Type:      internal.CommandTDelete,
		Mutations: []db.Mutation{{Key: key, Delete: true}},
	})
}

// Apply proposes the whole batch as one log entry. The guards are checked by the state
// machine when the entry is applied, so they see every write committed before it.
func (s *storeImpl) Apply(batch []db.Mutation, guards ...store.Guard) error {
	if len(batch) == 0 {
		return nil
	}
	return s.write(internal.Command{Type: internal.CommandTBatch, Mutations: batch, Guards: guards})
}

func (s *storeImpl) Get(key string) ([]byte, bool, error) {
	res, err := read[internal.QueryResult](s, internal.Query{Type: internal.QueryTGet, Key: key}, false)
	if err != nil {
		return nil, false, err
	}
	return res.Value, res.Ok, nil
}

func (s *storeImpl) Has(key string) (bool, error) {
	return read[bool](s, internal.Query{Type: internal.QueryTHas, Key: key}, false)
}

func (s *storeImpl) Scan(prefix string) ([]db.KeyValue, error) {
	return read[[]db.KeyValue](s, internal.Query{Type: internal.QueryTScan, Key: prefix}, false)
}

func (s *storeImpl) GetDBInfo() (db.DatabaseInfo, error) {
	return read[db.DatabaseInfo](s, internal.Query{Type: internal.QueryTGetDBInfo}, true)
}

// Close stops the local replica of the shard. The NodeHost itself belongs to the caller.
func (s *storeImpl) Close() error {
	if err := s.nh.StopShard(s.shardID); err != nil && !errors.Is(err, dragonboat.ErrShardNotFound) {
		return toStoreError(err)
	}
	return nil
}
