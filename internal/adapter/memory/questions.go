package memory

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) CreateQuestion(_ context.Context, q *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.questions[q.ID] = cloneQuestion(q)
	return nil
}

func (s *Store) GetQuestion(_ context.Context, id uuid.UUID) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	return cloneQuestion(q), nil
}

func (s *Store) IncrementViewCount(_ context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return 0, domain.ErrQuestionNotFound
	}
	q.ViewCount++
	return q.ViewCount, nil
}

func (s *Store) ListQuestionsByOwner(_ context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.Question
	for _, q := range s.questions {
		if q.OwnerID == ownerID {
			owned = append(owned, q)
		}
	}
	slices.SortFunc(owned, func(a, b *domain.Question) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})
	return pageOf(owned, offset, limit, cloneQuestion), nil
}

func (s *Store) CountQuestionsByOwner(_ context.Context, ownerID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, q := range s.questions {
		if q.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateQuestion(_ context.Context, id uuid.UUID, at time.Time, edit func(q *domain.Question) error) (*domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	draft := cloneQuestion(q)
	if err := edit(draft); err != nil {
		return nil, err
	}
	q.Title = draft.Title
	q.Content = draft.Content
	q.Tags = draft.Tags
	q.Version++
	q.UpdatedAt = at
	return cloneQuestion(q), nil
}

func (s *Store) DeleteQuestion(_ context.Context, id uuid.UUID, guard func(q *domain.Question) error) (*domain.CascadeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	if guard != nil {
		if err := guard(cloneQuestion(q)); err != nil {
			return nil, err
		}
	}

	result := &domain.CascadeResult{
		QuestionID:         id,
		ReputationAdjusted: make(map[uuid.UUID]int),
	}

	debit := func(owner uuid.UUID, votes map[uuid.UUID]domain.Vote) {
		result.VotesDeleted += len(votes)
		if sum := sumVotes(votes); sum != 0 {
			result.ReputationAdjusted[owner] -= sum
		}
	}

	debit(q.OwnerID, s.questionVotes[id])
	delete(s.questionVotes, id)

	for aid, a := range s.answers {
		if a.QuestionID != id {
			continue
		}
		debit(a.OwnerID, s.answerVotes[aid])
		delete(s.answerVotes, aid)
		delete(s.answers, aid)
		result.AnswersDeleted++
	}
	delete(s.questions, id)

	for owner, delta := range result.ReputationAdjusted {
		s.adjustReputationLocked(owner, delta)
	}
	return result, nil
}
