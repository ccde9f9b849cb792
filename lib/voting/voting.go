package voting

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/recstore/lib/query"
	"github.com/ValentinKolb/recstore/lib/record"
	"github.com/ValentinKolb/recstore/lib/store"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("voting")

// Service implements IVoting on a record store.
// The (candidate, voter) pairs are a unique index of the store, so two services on the
// same replicated store can never both accept the same vote.
type Service struct {
	votes *record.Store[Vote, *Vote]
}

var _ IVoting = (*Service)(nil)

// NewService registers the vote regions in layout (a new layout if nil) and opens the
// vote store on kv.
func NewService(kv store.IStore, layout *record.Layout, opts ...record.Option) (*Service, error) {
	if layout == nil {
		layout = record.NewLayout()
	}

	counter, err := layout.Register(VoteCounterRegion, "vote-counter")
	if err != nil {
		return nil, err
	}
	data, err := layout.Register(VoteRegion, "vote")
	if err != nil {
		return nil, err
	}
	pairs, err := layout.Register(VotePairRegion, "vote-pair")
	if err != nil {
		return nil, err
	}

	votes, err := record.New[Vote](kv, counter, data, opts...)
	if err != nil {
		return nil, err
	}
	if err := votes.Unique(pairs, pairKey, duplicateVote); err != nil {
		return nil, err
	}
	return &Service{votes: votes}, nil
}

// pairKey is unambiguous for any candidate name because of the length prefix
func pairKey(v Vote) string {
	return fmt.Sprintf("%d:%s/%s", len(v.Candidate), v.Candidate, v.Voter)
}

func duplicateVote(v Vote, holder uint64) error {
	return record.Errorf(record.RetCDuplicate, "%s already voted for %s (vote %d)", v.Voter, v.Candidate, holder)
}

func validate(candidate, voter string) error {
	if strings.TrimSpace(candidate) == "" {
		return record.Errorf(record.RetCInvalidInput, "candidate must not be empty")
	}
	if strings.TrimSpace(voter) == "" {
		return record.Errorf(record.RetCInvalidInput, "voter must not be empty")
	}
	return nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (s *Service) AddVote(candidate, voter string) (Vote, error) {
	if err := validate(candidate, voter); err != nil {
		return Vote{}, err
	}

	vote, err := s.votes.Insert(func(_ uint64, now uint64) (Vote, error) {
		return Vote{Candidate: candidate, Voter: voter, Timestamp: now}, nil
	})
	if err != nil {
		return Vote{}, err
	}
	log.Debugf("vote %d: %s -> %s", vote.ID, vote.Voter, vote.Candidate)
	return vote, nil
}

func (s *Service) GetVote(id uint64) (Vote, error) {
	return s.votes.Get(id)
}

func (s *Service) UpdateVote(id uint64, candidate, voter string) (Vote, error) {
	if err := validate(candidate, voter); err != nil {
		return Vote{}, err
	}

	// the record is loaded before the pair is claimed, so a missing id is reported
	// before a duplicate
	return s.votes.Update(id, func(v *Vote, now uint64) error {
		v.Candidate = candidate
		v.Voter = voter
		v.Timestamp = max(now, v.Timestamp)
		return nil
	})
}

func (s *Service) DeleteVote(id uint64) (Vote, error) {
	return s.votes.Delete(id)
}

func (s *Service) ClearVotes() error {
	return s.votes.Clear()
}

// --------------------------------------------------------------------------
// Queries
// --------------------------------------------------------------------------

func (s *Service) Votes() ([]Vote, error) {
	return s.votes.List()
}

func (s *Service) TotalVotes() (uint64, error) {
	return s.votes.Count()
}

func (s *Service) VotesByCandidate(candidate string) ([]Vote, error) {
	return s.filter(func(v Vote) bool { return v.Candidate == candidate })
}

func (s *Service) VotesByVoter(voter string) ([]Vote, error) {
	return s.filter(func(v Vote) bool { return v.Voter == voter })
}

func (s *Service) filter(keep func(Vote) bool) ([]Vote, error) {
	votes, err := s.votes.List()
	if err != nil {
		return nil, err
	}
	return query.Filter(votes, keep), nil
}

func (s *Service) LatestVoteTimestamp() (uint64, error) {
	votes, err := s.votes.List()
	if err != nil {
		return 0, err
	}
	latest, _ := query.MaxOf(votes, timestamp)
	return latest, nil
}

func (s *Service) Candidates() ([]string, error) {
	votes, err := s.votes.List()
	if err != nil {
		return nil, err
	}
	return query.Distinct(votes, candidateOf), nil
}

func (s *Service) CandidateVotes() (map[string]uint64, error) {
	votes, err := s.votes.List()
	if err != nil {
		return nil, err
	}
	return query.CountBy(votes, candidateOf), nil
}

func (s *Service) VotesInTimeRange(start, end uint64) ([]Vote, error) {
	votes, err := s.votes.List()
	if err != nil {
		return nil, err
	}
	return query.RangeBy(votes, timestamp, start, end), nil
}

func (s *Service) MostVotedCandidate() (string, error) {
	return s.extreme(query.MaxByCount[string])
}

func (s *Service) LeastVotedCandidate() (string, error) {
	return s.extreme(query.MinByCount[string])
}

func (s *Service) extreme(pick func(map[string]uint64) (string, bool)) (string, error) {
	counts, err := s.CandidateVotes()
	if err != nil {
		return "", err
	}
	candidate, ok := pick(counts)
	if !ok {
		return "", record.Errorf(record.RetCNoData, "no votes")
	}
	return candidate, nil
}

func (s *Service) VotesSortedByTimestamp() ([]Vote, error) {
	votes, err := s.votes.List()
	if err != nil {
		return nil, err
	}
	return query.SortBy(votes, timestamp, true), nil
}

func timestamp(v Vote) uint64   { return v.Timestamp }
func candidateOf(v Vote) string { return v.Candidate }
