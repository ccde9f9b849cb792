package client

import (
	"github.com/ValentinKolb/recstore/lib/voting"
	"github.com/ValentinKolb/recstore/rpc/common"
	"github.com/ValentinKolb/recstore/rpc/serializer"
	"github.com/ValentinKolb/recstore/rpc/transport"
)

// VotingClient is a voting.IVoting that forwards every call to a voting service
type VotingClient struct {
	rpcClientAdapter
}

var _ voting.IVoting = (*VotingClient)(nil)

// NewRPCVoting creates a new RPC voting client.
// The function takes a service ID, a config, a transport and a serializer as parameters
func NewRPCVoting(
	serviceId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*VotingClient, error) {
	adapter, err := newClientAdapter(serviceId, config, transport, serializer)
	if err != nil {
		return nil, err
	}
	return &VotingClient{adapter}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see voting.IVoting)
// --------------------------------------------------------------------------

func (c *VotingClient) AddVote(candidate, voter string) (voting.Vote, error) {
	return call[voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteAdd, Candidate: candidate, Voter: voter})
}

func (c *VotingClient) GetVote(id uint64) (voting.Vote, error) {
	return call[voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteGet, ID: id})
}

func (c *VotingClient) UpdateVote(id uint64, candidate, voter string) (voting.Vote, error) {
	return call[voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteUpdate, ID: id, Candidate: candidate, Voter: voter})
}

func (c *VotingClient) DeleteVote(id uint64) (voting.Vote, error) {
	return call[voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteDelete, ID: id})
}

func (c *VotingClient) ClearVotes() error {
	return exec(&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteClear})
}

func (c *VotingClient) Votes() ([]voting.Vote, error) {
	return call[[]voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteList})
}

func (c *VotingClient) TotalVotes() (uint64, error) {
	return call[uint64](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteTotal})
}

func (c *VotingClient) VotesByCandidate(candidate string) ([]voting.Vote, error) {
	return call[[]voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteByCandidate, Candidate: candidate})
}

func (c *VotingClient) VotesByVoter(voter string) ([]voting.Vote, error) {
	return call[[]voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteByVoter, Voter: voter})
}

func (c *VotingClient) LatestVoteTimestamp() (uint64, error) {
	return call[uint64](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteLatest})
}

func (c *VotingClient) Candidates() ([]string, error) {
	return call[[]string](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteCandidates})
}

func (c *VotingClient) CandidateVotes() (map[string]uint64, error) {
	return call[map[string]uint64](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteTally})
}

func (c *VotingClient) VotesInTimeRange(start, end uint64) ([]voting.Vote, error) {
	return call[[]voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteRange, From: start, To: end})
}

func (c *VotingClient) MostVotedCandidate() (string, error) {
	return call[string](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteMost})
}

func (c *VotingClient) LeastVotedCandidate() (string, error) {
	return call[string](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteLeast})
}

func (c *VotingClient) VotesSortedByTimestamp() ([]voting.Vote, error) {
	return call[[]voting.Vote](&c.rpcClientAdapter, &common.Message{MsgType: common.MsgTVoteSorted})
}
