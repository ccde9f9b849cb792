package client

import (
	"net/http/httptest"
	"testing"

	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/serializer"
	"github.com/ValentinKolb/recstore/rpc/server"
	rpchttp "github.com/ValentinKolb/recstore/rpc/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lotteryService = 100
	votingService  = 200
)

// startServer runs an in-process server with a lottery and a voting service
// and returns the client config pointing at it
func startServer(t *testing.T, ser serializer.IRPCSerializer, clock record.Clock) common.ClientConfig {
	s := server.NewRPCServer(common.ServerConfig{
		Services: []common.ServiceConfig{
			{ServiceID: lotteryService, Kind: common.ServiceLottery, Backend: common.BackendMaple},
			{ServiceID: votingService, Kind: common.ServiceVoting, Backend: common.BackendMaple},
		},
	}, nil, ser, record.WithClock(clock))
	require.NoError(t, s.Open())
	t.Cleanup(s.Close)

	ts := httptest.NewServer(rpchttp.NewHandler(s.Handle, false))
	t.Cleanup(ts.Close)

	return common.ClientConfig{Endpoints: []string{ts.URL}, TimeoutSecond: 5, RetryCount: 1}
}

func TestLotteryClient(t *testing.T) {
	for name, factory := range map[string]func() serializer.IRPCSerializer{
		"json":    serializer.NewJSONSerializer,
		"gob":     serializer.NewGOBSerializer,
		"msgpack": serializer.NewMsgpackSerializer,
	} {
		t.Run(name, func(t *testing.T) {
			ser := factory()
			config := startServer(t, ser, record.NewManualClock(500))

			lot, err := NewRPCLottery(lotteryService, config, rpchttp.NewHttpClientTransport(), ser)
			require.NoError(t, err)
			defer lot.Close()

			_, err = lot.AllTickets()
			assert.ErrorIs(t, err, record.ErrNotFound)

			alice, err := lot.BuyTicket("alice", []uint32{1, 2, 3, 4, 5, 6})
			require.NoError(t, err)
			assert.Equal(t, uint64(1), alice.ID)
			assert.Equal(t, uint64(500), alice.CreatedAt)

			bob, err := lot.BuyTicket("bob", []uint32{1, 2, 3, 4, 10, 12})
			require.NoError(t, err)

			_, err = lot.BuyTicket("carol", []uint32{0, 2, 3, 4, 5, 6})
			assert.ErrorIs(t, err, record.ErrInvalidInput)

			draw, err := lot.ConductDraw([]uint32{1, 2, 3, 4, 5, 12})
			require.NoError(t, err)

			_, err = lot.Participate(alice.ID, draw.ID)
			require.NoError(t, err)
			joined, err := lot.Participate(bob.ID, draw.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"alice", "bob"}, joined.Participants)

			_, err = lot.Participate(bob.ID, draw.ID)
			assert.ErrorIs(t, err, record.ErrDuplicate)

			results, err := lot.DrawResults(draw.ID)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, alice.ID, results[0].TicketID)
			assert.Equal(t, uint32(5), results[0].Matches)
			assert.Equal(t, uint32(5), results[1].Matches)

			owned, err := lot.TicketsByOwner("bob")
			require.NoError(t, err)
			assert.Equal(t, []uint64{bob.ID}, []uint64{owned[0].ID})

			updated, err := lot.UpdateTicket(alice.ID, []uint32{7, 8, 9, 10, 11, 12})
			require.NoError(t, err)
			require.NotNil(t, updated.UpdatedAt)

			deleted, err := lot.DeleteTicket(alice.ID)
			require.NoError(t, err)
			assert.Equal(t, "alice", deleted.Owner)
			_, err = lot.CheckTicket(alice.ID)
			assert.ErrorIs(t, err, record.ErrNotFound)

			require.NoError(t, lot.ClearTickets())
			require.NoError(t, lot.ClearDraws())
			_, err = lot.AllDraws()
			assert.ErrorIs(t, err, record.ErrNotFound)
			_, err = lot.GetDraw(draw.ID)
			assert.ErrorIs(t, err, record.ErrNotFound)
		})
	}
}

func TestVotingClient(t *testing.T) {
	ser := serializer.NewMsgpackSerializer()
	clock := record.NewManualClock(100)
	config := startServer(t, ser, clock)

	votes, err := NewRPCVoting(votingService, config, rpchttp.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer votes.Close()

	_, err = votes.MostVotedCandidate()
	assert.ErrorIs(t, err, record.ErrNoData)
	latest, err := votes.LatestVoteTimestamp()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), latest)

	_, err = votes.AddVote("X", "v1")
	require.NoError(t, err)
	_, err = votes.AddVote("X", "v1")
	assert.ErrorIs(t, err, record.ErrDuplicate)
	total, err := votes.TotalVotes()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)

	require.NoError(t, votes.ClearVotes())

	clock.Set(200)
	a1, err := votes.AddVote("A", "v1")
	require.NoError(t, err)
	clock.Set(300)
	_, err = votes.AddVote("A", "v2")
	require.NoError(t, err)
	clock.Set(250)
	b1, err := votes.AddVote("B", "v3")
	require.NoError(t, err)

	most, err := votes.MostVotedCandidate()
	require.NoError(t, err)
	assert.Equal(t, "A", most)
	least, err := votes.LeastVotedCandidate()
	require.NoError(t, err)
	assert.Equal(t, "B", least)

	tally, err := votes.CandidateVotes()
	require.NoError(t, err)
	assert.Equal(t, map[string]uint64{"A": 2, "B": 1}, tally)

	candidates, err := votes.Candidates()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, candidates)

	inRange, err := votes.VotesInTimeRange(200, 250)
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	empty, err := votes.VotesInTimeRange(300, 200)
	require.NoError(t, err)
	assert.Empty(t, empty)

	sorted, err := votes.VotesSortedByTimestamp()
	require.NoError(t, err)
	require.Len(t, sorted, 3)
	assert.Equal(t, []uint64{200, 250, 300}, []uint64{sorted[0].Timestamp, sorted[1].Timestamp, sorted[2].Timestamp})

	byVoter, err := votes.VotesByVoter("v3")
	require.NoError(t, err)
	assert.Equal(t, []uint64{b1.ID}, []uint64{byVoter[0].ID})

	byCandidate, err := votes.VotesByCandidate("A")
	require.NoError(t, err)
	assert.Len(t, byCandidate, 2)

	_, err = votes.UpdateVote(a1.ID, "B", "v3")
	assert.ErrorIs(t, err, record.ErrDuplicate)
	_, err = votes.UpdateVote(99, "C", "v9")
	assert.ErrorIs(t, err, record.ErrNotFound)

	deleted, err := votes.DeleteVote(a1.ID)
	require.NoError(t, err)
	assert.Equal(t, a1, deleted)
	_, err = votes.GetVote(a1.ID)
	assert.ErrorIs(t, err, record.ErrNotFound)

	list, err := votes.Votes()
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestClientUnknownService(t *testing.T) {
	ser := serializer.NewJSONSerializer()
	config := startServer(t, ser, record.NewManualClock(1))

	votes, err := NewRPCVoting(999, config, rpchttp.NewHttpClientTransport(), ser)
	require.NoError(t, err)
	defer votes.Close()

	_, err = votes.TotalVotes()
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestClientConnectFails(t *testing.T) {
	_, err := NewRPCLottery(1, common.ClientConfig{}, rpchttp.NewHttpClientTransport(), serializer.NewJSONSerializer())
	assert.Error(t, err)
}
