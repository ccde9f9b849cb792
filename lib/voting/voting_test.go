package voting

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/recstore/lib/db"
	"github.com/ValentinKolb/recstore/lib/db/engines/lite"
	"github.com/ValentinKolb/recstore/lib/db/engines/maple"
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/ValentinKolb/recstore/lib/store/lstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *record.ManualClock) {
	kv, err := lstore.NewLocalStore(func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil })
	require.NoError(t, err)

	clock := record.NewManualClock(100)
	svc, err := NewService(kv, nil, record.WithClock(clock))
	require.NoError(t, err)
	return svc, clock
}

func TestAddVoteDuplicate(t *testing.T) {
	svc, _ := newTestService(t)

	vote, err := svc.AddVote("X", "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), vote.ID)
	assert.Equal(t, uint64(100), vote.Timestamp)

	_, err = svc.AddVote("X", "v1")
	assert.ErrorIs(t, err, record.ErrDuplicate)

	total, err := svc.TotalVotes()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	// the same voter may vote for someone else
	other, err := svc.AddVote("Y", "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), other.ID)
}

func TestAddVoteValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddVote("", "v1")
	assert.ErrorIs(t, err, record.ErrInvalidInput)
	_, err = svc.AddVote("X", " ")
	assert.ErrorIs(t, err, record.ErrInvalidInput)

	total, err := svc.TotalVotes()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)
}

func TestMostAndLeastVoted(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.MostVotedCandidate()
	assert.ErrorIs(t, err, record.ErrNoData)
	_, err = svc.LeastVotedCandidate()
	assert.ErrorIs(t, err, record.ErrNoData)

	for i, candidate := range []string{"A", "A", "B"} {
		_, err := svc.AddVote(candidate, string(rune('a'+i)))
		require.NoError(t, err)
	}

	most, err := svc.MostVotedCandidate()
	require.NoError(t, err)
	assert.Equal(t, "A", most)

	least, err := svc.LeastVotedCandidate()
	require.NoError(t, err)
	assert.Equal(t, "B", least)

	// a tie goes to the smallest name
	_, err = svc.AddVote("B", "z")
	require.NoError(t, err)
	most, err = svc.MostVotedCandidate()
	require.NoError(t, err)
	assert.Equal(t, "A", most)
	least, err = svc.LeastVotedCandidate()
	require.NoError(t, err)
	assert.Equal(t, "A", least)
}

func TestUpdateVote(t *testing.T) {
	svc, clock := newTestService(t)

	first, err := svc.AddVote("A", "v1")
	require.NoError(t, err)
	second, err := svc.AddVote("B", "v1")
	require.NoError(t, err)

	clock.Advance(time.Second)
	updated, err := svc.UpdateVote(first.ID, "C", "v1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, "C", updated.Candidate)
	assert.Equal(t, first.Timestamp+uint64(time.Second), updated.Timestamp)

	// updating a vote to its own pair is fine
	_, err = svc.UpdateVote(first.ID, "C", "v1")
	require.NoError(t, err)

	// but not to the pair of another vote
	_, err = svc.UpdateVote(first.ID, "B", "v1")
	assert.ErrorIs(t, err, record.ErrDuplicate)

	_, err = svc.UpdateVote(99, "B", "v1")
	assert.ErrorIs(t, err, record.ErrNotFound)
	_, err = svc.UpdateVote(second.ID, "", "v1")
	assert.ErrorIs(t, err, record.ErrInvalidInput)

	// the timestamp never goes back
	clock.Set(0)
	again, err := svc.UpdateVote(second.ID, "D", "v2")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, again.Timestamp, second.Timestamp)
}

func TestDeleteAndClear(t *testing.T) {
	svc, _ := newTestService(t)

	vote, err := svc.AddVote("A", "v1")
	require.NoError(t, err)
	_, err = svc.AddVote("B", "v2")
	require.NoError(t, err)

	deleted, err := svc.DeleteVote(vote.ID)
	require.NoError(t, err)
	assert.Equal(t, vote, deleted)

	_, err = svc.GetVote(vote.ID)
	assert.ErrorIs(t, err, record.ErrNotFound)
	_, err = svc.DeleteVote(vote.ID)
	assert.ErrorIs(t, err, record.ErrNotFound)

	total, err := svc.TotalVotes()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	// the deleted pair is free again
	readded, err := svc.AddVote("A", "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), readded.ID)

	require.NoError(t, svc.ClearVotes())
	votes, err := svc.Votes()
	require.NoError(t, err)
	assert.Empty(t, votes)

	next, err := svc.AddVote("A", "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next.ID)
}

func TestQueries(t *testing.T) {
	svc, clock := newTestService(t)

	add := func(candidate, voter string, at uint64) Vote {
		clock.Set(at)
		v, err := svc.AddVote(candidate, voter)
		require.NoError(t, err)
		return v
	}
	v1 := add("B", "v1", 300)
	v2 := add("A", "v1", 100)
	v3 := add("A", "v2", 200)
	v4 := add("C", "v3", 200)

	latest, err := svc.LatestVoteTimestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(300), latest)

	candidates, err := svc.Candidates()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, candidates)

	counts, err := svc.CandidateVotes()
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"A": 2, "B": 1, "C": 1}, counts)

	byCandidate, err := svc.VotesByCandidate("A")
	require.NoError(t, err)
	assert.Equal(t, []Vote{v2, v3}, byCandidate)

	byVoter, err := svc.VotesByVoter("v1")
	require.NoError(t, err)
	assert.Equal(t, []Vote{v1, v2}, byVoter)

	none, err := svc.VotesByVoter("nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	inRange, err := svc.VotesInTimeRange(150, 300)
	require.NoError(t, err)
	assert.Equal(t, []Vote{v1, v3, v4}, inRange)

	reversed, err := svc.VotesInTimeRange(300, 150)
	require.NoError(t, err)
	assert.Empty(t, reversed)

	sorted, err := svc.VotesSortedByTimestamp()
	require.NoError(t, err)
	assert.Equal(t, []Vote{v2, v3, v4, v1}, sorted)

	all, err := svc.Votes()
	require.NoError(t, err)
	assert.Equal(t, []Vote{v1, v2, v3, v4}, all)
}

func TestEmptyStoreQueries(t *testing.T) {
	svc, _ := newTestService(t)

	votes, err := svc.Votes()
	require.NoError(t, err)
	assert.Empty(t, votes)

	latest, err := svc.LatestVoteTimestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest)

	candidates, err := svc.Candidates()
	require.NoError(t, err)
	assert.Empty(t, candidates)

	counts, err := svc.CandidateVotes()
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestVotesSurviveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "votes.db")
	open := func() *Service {
		kv, err := lstore.NewLocalStore(func() (db.KVDB, error) {
			return lite.NewLiteDB(&lite.DBOptions{Path: path})
		})
		require.NoError(t, err)
		t.Cleanup(func() { kv.(interface{ Close() error }).Close() })

		svc, err := NewService(kv, nil)
		require.NoError(t, err)
		return svc
	}

	svc := open()
	_, err := svc.AddVote("A", "v1")
	require.NoError(t, err)
	_, err = svc.AddVote("B", "v1")
	require.NoError(t, err)
	require.NoError(t, svc.ClearVotes())
	vote, err := svc.AddVote("A", "v1")
	require.NoError(t, err)

	// a second process on the same file sees the same votes and continues the ids
	restarted := open()
	loaded, err := restarted.GetVote(vote.ID)
	require.NoError(t, err)
	assert.Equal(t, vote, loaded)

	_, err = restarted.AddVote("A", "v1")
	assert.ErrorIs(t, err, record.ErrDuplicate)

	next, err := restarted.AddVote("B", "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next.ID)
}

func TestFailedSnapshotLeavesNoVote(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	kv, err := lstore.NewLocalStore(
		func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil },
		lstore.WithSnapshotFile(filepath.Join(dir, "votes.snap")),
	)
	require.NoError(t, err)
	svc, err := NewService(kv, nil)
	require.NoError(t, err)

	// a plain file where the data directory should be
	require.NoError(t, os.WriteFile(dir, []byte("x"), 0644))

	_, err = svc.AddVote("X", "v1")
	assert.ErrorIs(t, err, record.ErrInternal)

	total, err := svc.TotalVotes()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), total)

	// the same vote goes through once the snapshot can be written again
	require.NoError(t, os.Remove(dir))
	vote, err := svc.AddVote("X", "v1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), vote.ID)
}

// racingStore lets another service vote right after the vote counter was read
type racingStore struct {
	store.IStore
	next func()
}

func (s *racingStore) Get(key string) ([]byte, bool, error) {
	value, ok, err := s.IStore.Get(key)
	if key == (record.Region{ID: VoteCounterRegion}).CounterKey() && s.next != nil {
		next := s.next
		s.next = nil
		next()
	}
	return value, ok, err
}

func TestSameVoteOnTwoNodes(t *testing.T) {
	kv, err := lstore.NewLocalStore(func() (db.KVDB, error) { return maple.NewMapleDB(nil), nil })
	require.NoError(t, err)
	shared := &racingStore{IStore: kv}

	nodeA, err := NewService(shared, nil)
	require.NoError(t, err)
	nodeB, err := NewService(kv, nil)
	require.NoError(t, err)

	shared.next = func() {
		_, err := nodeB.AddVote("X", "v1")
		require.NoError(t, err)
	}

	_, err = nodeA.AddVote("X", "v1")
	assert.ErrorIs(t, err, record.ErrDuplicate)

	// a different vote from node A gets the next id instead of overwriting vote 1
	shared.next = func() {
		_, err := nodeB.AddVote("Y", "v2")
		require.NoError(t, err)
	}
	vote, err := nodeA.AddVote("Z", "v3")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), vote.ID)

	votes, err := nodeB.Votes()
	require.NoError(t, err)
	require.Len(t, votes, 3)
	assert.Equal(t, []string{"X", "Y", "Z"}, []string{votes[0].Candidate, votes[1].Candidate, votes[2].Candidate})
}
