package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// votableLocked returns the owner of the votable and a pointer to its derived vote count.
func (s *Store) votableLocked(ref domain.VotableRef) (uuid.UUID, *int, func(), error) {
	switch ref.Kind {
	case domain.KindQuestion:
		q, ok := s.questions[ref.ID]
		if !ok {
			return uuid.Nil, nil, nil, domain.ErrQuestionNotFound
		}
		return q.OwnerID, &q.VoteCount, func() { q.Version++ }, nil
	case domain.KindAnswer:
		a, ok := s.answers[ref.ID]
		if !ok {
			return uuid.Nil, nil, nil, domain.ErrAnswerNotFound
		}
		return a.OwnerID, &a.VoteCount, func() { a.Version++ }, nil
	default:
		return uuid.Nil, nil, nil, domain.ErrInvalidVotableKind
	}
}

func (s *Store) ApplyVote(_ context.Context, ref domain.VotableRef, voterID uuid.UUID, at time.Time, decide domain.VoteDecision) (domain.VoteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownerID, count, bump, err := s.votableLocked(ref)
	if err != nil {
		return domain.VoteOutcome{}, err
	}

	all := s.votesFor(ref.Kind)
	votes := all[ref.ID]

	var existing *domain.Vote
	if v, ok := votes[voterID]; ok {
		existing = &v
	}

	change, err := decide(ownerID, existing)
	if err != nil {
		return domain.VoteOutcome{}, err
	}

	switch change.Action {
	case domain.VoteInserted, domain.VoteReplaced:
		if votes == nil {
			votes = make(map[uuid.UUID]domain.Vote)
			all[ref.ID] = votes
		}
		votes[voterID] = domain.Vote{VoterID: voterID, Value: change.Value, CreatedAt: at}
	case domain.VoteRemoved:
		delete(votes, voterID)
	}

	*count += change.Delta
	bump()
	s.adjustReputationLocked(ownerID, change.Delta)

	return domain.VoteOutcome{
		Action:          change.Action,
		VoteCount:       *count,
		ReputationDelta: change.Delta,
		UserVote:        change.Value,
		OwnerID:         ownerID,
	}, nil
}

func (s *Store) GetVote(_ context.Context, ref domain.VotableRef, voterID uuid.UUID) (*domain.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, _, _, err := s.votableLocked(ref); err != nil {
		return nil, err
	}
	v, ok := s.votesFor(ref.Kind)[ref.ID][voterID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
