package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) CreateAnswer(_ context.Context, a *domain.Answer, notice domain.AnswerNotice) (*domain.Question, *domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[a.QuestionID]
	if !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}
	for _, existing := range s.answers {
		if existing.QuestionID == a.QuestionID && existing.OwnerID == a.OwnerID {
			return nil, nil, domain.ErrAlreadyAnswered
		}
	}

	var note *domain.Notification
	if notice != nil {
		note = notice(cloneQuestion(q))
	}

	s.answers[a.ID] = cloneAnswer(a)
	q.AnswerCount++
	q.Version++
	q.UpdatedAt = a.CreatedAt
	if note != nil {
		s.notifications[note.ID] = cloneNotification(note)
	}
	return cloneQuestion(q), note, nil
}

func (s *Store) GetAnswer(_ context.Context, id uuid.UUID) (*domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, domain.ErrAnswerNotFound
	}
	return cloneAnswer(a), nil
}

// ListAnswers orders the accepted answer first, then by votes, then oldest first.
func (s *Store) ListAnswers(_ context.Context, questionID uuid.UUID) ([]*domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.questions[questionID]; !ok {
		return nil, domain.ErrQuestionNotFound
	}

	out := make([]*domain.Answer, 0)
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, cloneAnswer(a))
		}
	}
	slices.SortFunc(out, compareAnswers)
	return out, nil
}

func compareAnswers(a, b *domain.Answer) int {
	if a.IsAccepted != b.IsAccepted {
		if a.IsAccepted {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(b.VoteCount, a.VoteCount); c != 0 {
		return c
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func (s *Store) DeleteAnswer(_ context.Context, id uuid.UUID, guard func(q *domain.Question, a *domain.Answer) error) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, domain.ErrAnswerNotFound
	}
	q, ok := s.questions[a.QuestionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	if guard != nil {
		if err := guard(cloneQuestion(q), cloneAnswer(a)); err != nil {
			return nil, err
		}
	}

	if q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == id {
		q.AcceptedAnswerID = nil
	}
	q.AnswerCount--
	q.Version++

	s.adjustReputationLocked(a.OwnerID, -sumVotes(s.answerVotes[id]))
	delete(s.answerVotes, id)
	delete(s.answers, id)
	return cloneAnswer(a), nil
}

func (s *Store) ListAnswersByOwner(_ context.Context, ownerID uuid.UUID, offset, limit int) ([]*domain.Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []*domain.Answer
	for _, a := range s.answers {
		if a.OwnerID == ownerID {
			owned = append(owned, a)
		}
	}
	slices.SortFunc(owned, func(a, b *domain.Answer) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(b.ID[:], a.ID[:])
	})
	return pageOf(owned, offset, limit, cloneAnswer), nil
}

func (s *Store) CountAnswersByOwner(_ context.Context, ownerID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, a := range s.answers {
		if a.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateAnswer(_ context.Context, id uuid.UUID, at time.Time, edit func(a *domain.Answer) error) (*domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.answers[id]
	if !ok {
		return nil, domain.ErrAnswerNotFound
	}
	draft := cloneAnswer(a)
	if err := edit(draft); err != nil {
		return nil, err
	}
	a.Content = draft.Content
	a.Version++
	a.UpdatedAt = at
	return cloneAnswer(a), nil
}
