package server

import (
	"fmt"

	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/lib/voting"
	"github.com/ValentinKolb/recstore/rpc/common"
)

func NewVotingServerAdapter(svc voting.IVoting) IRPCServerAdapter {
	return &votingServerAdapterImpl{svc: svc}
}

type votingServerAdapterImpl struct {
	svc voting.IVoting
}

func (adapter *votingServerAdapterImpl) Handle(req *common.Message) *common.Message {
	svc := adapter.svc

	switch req.MsgType {
	case common.MsgTVoteAdd:
		vote, err := svc.AddVote(req.Candidate, req.Voter)
		return common.NewResponse(req.MsgType, vote, err)
	case common.MsgTVoteGet:
		vote, err := svc.GetVote(req.ID)
		return common.NewResponse(req.MsgType, vote, err)
	case common.MsgTVoteUpdate:
		vote, err := svc.UpdateVote(req.ID, req.Candidate, req.Voter)
		return common.NewResponse(req.MsgType, vote, err)
	case common.MsgTVoteDelete:
		vote, err := svc.DeleteVote(req.ID)
		return common.NewResponse(req.MsgType, vote, err)
	case common.MsgTVoteClear:
		return common.NewResponse(req.MsgType, nil, svc.ClearVotes())
	case common.MsgTVoteList:
		votes, err := svc.Votes()
		return common.NewResponse(req.MsgType, votes, err)
	case common.MsgTVoteTotal:
		total, err := svc.TotalVotes()
		return common.NewResponse(req.MsgType, total, err)
	case common.MsgTVoteByCandidate:
		votes, err := svc.VotesByCandidate(req.Candidate)
		return common.NewResponse(req.MsgType, votes, err)
	case common.MsgTVoteByVoter:
		votes, err := svc.VotesByVoter(req.Voter)
		return common.NewResponse(req.MsgType, votes, err)
	case common.MsgTVoteLatest:
		ts, err := svc.LatestVoteTimestamp()
		return common.NewResponse(req.MsgType, ts, err)
	case common.MsgTVoteCandidates:
		candidates, err := svc.Candidates()
		return common.NewResponse(req.MsgType, candidates, err)
	case common.MsgTVoteTally:
		counts, err := svc.CandidateVotes()
		return common.NewResponse(req.MsgType, counts, err)
	case common.MsgTVoteRange:
		votes, err := svc.VotesInTimeRange(req.From, req.To)
		return common.NewResponse(req.MsgType, votes, err)
	case common.MsgTVoteMost:
		candidate, err := svc.MostVotedCandidate()
		return common.NewResponse(req.MsgType, candidate, err)
	case common.MsgTVoteLeast:
		candidate, err := svc.LeastVotedCandidate()
		return common.NewResponse(req.MsgType, candidate, err)
	case common.MsgTVoteSorted:
		votes, err := svc.VotesSortedByTimestamp()
		return common.NewResponse(req.MsgType, votes, err)
	default:
		return common.NewErrorResponse(record.RetCInvalidInput,
			fmt.Sprintf("voting service: unsupported message type: %s", req.MsgType))
	}
}
