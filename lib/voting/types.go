package voting

import "github.com/ValentinKolb/recstore/lib/record"

// Fixed region handles of the vote family.
const (
	VoteCounterRegion record.RegionID = 10
	VoteRegion        record.RegionID = 11
	VotePairRegion    record.RegionID = 12 // (candidate, voter) -> vote id
)

// Vote is a single vote of voter for candidate.
type Vote struct {
	ID        uint64 `json:"id" msgpack:"id"`
	Candidate string `json:"candidate" msgpack:"candidate"`
	Voter     string `json:"voter" msgpack:"voter"`
	Timestamp uint64 `json:"timestamp" msgpack:"timestamp"`
}

func (v *Vote) RecordID() uint64      { return v.ID }
func (v *Vote) SetRecordID(id uint64) { v.ID = id }

// IVoting is implemented by the local Service and by the RPC client.
type IVoting interface {
	// AddVote stores a vote. A voter can vote for a candidate only once (RetCDuplicate).
	AddVote(candidate, voter string) (Vote, error)
	// GetVote returns the vote with the given id (RetCNotFound).
	GetVote(id uint64) (Vote, error)
	// UpdateVote replaces candidate and voter of a vote and refreshes its timestamp.
	UpdateVote(id uint64, candidate, voter string) (Vote, error)
	// DeleteVote removes the vote and returns it.
	DeleteVote(id uint64) (Vote, error)
	// ClearVotes removes all votes. Ids are not reused.
	ClearVotes() error

	// Votes returns all votes in id order (may be empty).
	Votes() ([]Vote, error)
	// TotalVotes returns the number of votes.
	TotalVotes() (uint64, error)
	// VotesByCandidate returns the votes for candidate.
	VotesByCandidate(candidate string) ([]Vote, error)
	// VotesByVoter returns the votes of voter.
	VotesByVoter(voter string) ([]Vote, error)
	// LatestVoteTimestamp returns the newest timestamp, 0 without votes.
	LatestVoteTimestamp() (uint64, error)
	// Candidates returns every candidate with at least one vote, sorted.
	Candidates() ([]string, error)
	// CandidateVotes returns the number of votes per candidate.
	CandidateVotes() (map[string]uint64, error)
	// VotesInTimeRange returns the votes with start <= timestamp <= end.
	VotesInTimeRange(start, end uint64) ([]Vote, error)
	// MostVotedCandidate returns the candidate with the most votes (RetCNoData without votes).
	MostVotedCandidate() (string, error)
	// LeastVotedCandidate returns the candidate with the fewest votes (RetCNoData without votes).
	LeastVotedCandidate() (string, error)
	// VotesSortedByTimestamp returns all votes, oldest first.
	VotesSortedByTimestamp() ([]Vote, error)
}
