package server

import (
	"testing"

	"github.com/ValentinKolb/recstore/lib/lottery"
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/lib/voting"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, dataDir string) (*RPCServer, serializer.IRPCSerializer) {
	ser := serializer.NewJSONSerializer()
	s := NewRPCServer(common.ServerConfig{
		Services: []common.ServiceConfig{
			{ServiceID: 100, Kind: common.ServiceLottery, Backend: common.BackendMaple},
			{ServiceID: 200, Kind: common.ServiceVoting, Backend: common.BackendLite},
		},
		DataDir: dataDir,
	}, nil, ser, record.WithClock(record.NewManualClock(1000)))
	require.NoError(t, s.Open())
	t.Cleanup(s.Close)
	return s, ser
}

// call sends msg to the service and decodes the response
func call(t *testing.T, s *RPCServer, ser serializer.IRPCSerializer, serviceId uint64, msg common.Message) common.Message {
	req, err := ser.Serialize(msg)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, ser.Deserialize(s.Handle(serviceId, req), &resp))
	return resp
}

func TestHandleLotteryRequests(t *testing.T) {
	s, ser := newTestServer(t, t.TempDir())

	resp := call(t, s, ser, 100, common.Message{MsgType: common.MsgTLotBuy, Owner: "alice", Numbers: []uint32{1, 2, 3, 4, 5, 6}})
	require.NoError(t, resp.ToError())

	var ticket lottery.Ticket
	require.NoError(t, common.DecodeResult(resp.Value, &ticket))
	assert.Equal(t, uint64(1), ticket.ID)
	assert.Equal(t, "alice", ticket.Owner)
	assert.Equal(t, uint64(1000), ticket.CreatedAt)

	resp = call(t, s, ser, 100, common.Message{MsgType: common.MsgTLotBuy, Owner: "bob", Numbers: []uint32{1, 1, 2, 3, 4, 5}})
	assert.Equal(t, record.RetCInvalidInput, resp.Code)
	assert.ErrorIs(t, resp.ToError(), record.ErrInvalidInput)

	resp = call(t, s, ser, 100, common.Message{MsgType: common.MsgTLotCheck, ID: 99})
	assert.ErrorIs(t, resp.ToError(), record.ErrNotFound)

	// voting messages are not understood by a lottery service
	resp = call(t, s, ser, 100, common.Message{MsgType: common.MsgTVoteAdd, Candidate: "A", Voter: "v1"})
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.Equal(t, record.RetCInvalidInput, resp.Code)
}

func TestHandleVotingRequests(t *testing.T) {
	s, ser := newTestServer(t, t.TempDir())

	resp := call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteAdd, Candidate: "X", Voter: "v1"})
	require.NoError(t, resp.ToError())

	resp = call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteAdd, Candidate: "X", Voter: "v1"})
	assert.ErrorIs(t, resp.ToError(), record.ErrDuplicate)

	resp = call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteTotal})
	require.NoError(t, resp.ToError())
	var total uint64
	require.NoError(t, common.DecodeResult(resp.Value, &total))
	assert.Equal(t, uint64(1), total)

	resp = call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteList})
	require.NoError(t, resp.ToError())
	var votes []voting.Vote
	require.NoError(t, common.DecodeResult(resp.Value, &votes))
	require.Len(t, votes, 1)
	assert.Equal(t, "X", votes[0].Candidate)

	resp = call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteClear})
	require.NoError(t, resp.ToError())

	resp = call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteMost})
	assert.ErrorIs(t, resp.ToError(), record.ErrNoData)
}

func TestHandleUnknownServiceAndGarbage(t *testing.T) {
	s, ser := newTestServer(t, t.TempDir())

	resp := call(t, s, ser, 999, common.Message{MsgType: common.MsgTVoteTotal})
	assert.Equal(t, common.MsgTError, resp.MsgType)
	assert.ErrorIs(t, resp.ToError(), record.ErrNotFound)

	var garbage common.Message
	require.NoError(t, ser.Deserialize(s.Handle(200, []byte("{not json")), &garbage))
	assert.Equal(t, common.MsgTError, garbage.MsgType)
	assert.Equal(t, record.RetCInvalidInput, garbage.Code)
}

func TestServicesSurviveRestart(t *testing.T) {
	dir := t.TempDir()

	s, ser := newTestServer(t, dir)
	seed := call(t, s, ser, 100, common.Message{MsgType: common.MsgTLotBuy, Owner: "alice", Numbers: []uint32{1, 2, 3, 4, 5, 6}})
	require.NoError(t, seed.ToError())
	seed = call(t, s, ser, 200, common.Message{MsgType: common.MsgTVoteAdd, Candidate: "A", Voter: "v1"})
	require.NoError(t, seed.ToError())
	s.Close()

	restarted, ser := newTestServer(t, dir)

	resp := call(t, restarted, ser, 100, common.Message{MsgType: common.MsgTLotCheck, ID: 1})
	require.NoError(t, resp.ToError())
	var ticket lottery.Ticket
	require.NoError(t, common.DecodeResult(resp.Value, &ticket))
	assert.Equal(t, "alice", ticket.Owner)

	resp = call(t, restarted, ser, 200, common.Message{MsgType: common.MsgTVoteAdd, Candidate: "A", Voter: "v1"})
	assert.ErrorIs(t, resp.ToError(), record.ErrDuplicate)

	resp = call(t, restarted, ser, 200, common.Message{MsgType: common.MsgTVoteAdd, Candidate: "B", Voter: "v1"})
	require.NoError(t, resp.ToError())
	var vote voting.Vote
	require.NoError(t, common.DecodeResult(resp.Value, &vote))
	assert.Equal(t, uint64(2), vote.ID)
}

func TestOpenFailsForLiteWithoutDataDir(t *testing.T) {
	s := NewRPCServer(common.ServerConfig{
		Services: []common.ServiceConfig{{ServiceID: 1, Kind: common.ServiceVoting, Backend: common.BackendLite}},
	}, nil, serializer.NewJSONSerializer())
	assert.Error(t, s.Open())
}
