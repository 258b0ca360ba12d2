package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) expectedReputationLocked(userID uuid.UUID) int {
	expected := domain.InitialReputation
	for qid, q := range s.questions {
		if q.OwnerID == userID {
			expected += sumVotes(s.questionVotes[qid])
		}
	}
	for aid, a := range s.answers {
		if a.OwnerID == userID {
			expected += sumVotes(s.answerVotes[aid])
		}
	}
	return expected
}

func (s *Store) liveAnswerCountLocked(questionID uuid.UUID) int {
	n := 0
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			n++
		}
	}
	return n
}

// acceptanceConsistentLocked reports whether the question pointer and the answers' flags agree.
func (s *Store) acceptanceConsistentLocked(q *domain.Question) bool {
	accepted := 0
	for _, a := range s.answers {
		if a.QuestionID != q.ID || !a.IsAccepted {
			continue
		}
		accepted++
		if q.AcceptedAnswerID == nil || *q.AcceptedAnswerID != a.ID {
			return false
		}
	}
	if q.AcceptedAnswerID == nil {
		return accepted == 0
	}
	return accepted == 1
}

func (s *Store) FindReputationDrift(_ context.Context) ([]domain.ReputationDrift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var drift []domain.ReputationDrift
	for id, u := range s.users {
		if expected := s.expectedReputationLocked(id); expected != u.Reputation {
			drift = append(drift, domain.ReputationDrift{UserID: id, Stored: u.Reputation, Expected: expected})
		}
	}
	return drift, nil
}

func (s *Store) FindAnswerCountDrift(_ context.Context) ([]domain.AnswerCountDrift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var drift []domain.AnswerCountDrift
	for id, q := range s.questions {
		if live := s.liveAnswerCountLocked(id); live != q.AnswerCount {
			drift = append(drift, domain.AnswerCountDrift{QuestionID: id, Stored: q.AnswerCount, Live: live})
		}
	}
	return drift, nil
}

func (s *Store) FindAcceptanceMismatches(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for id, q := range s.questions {
		if !s.acceptanceConsistentLocked(q) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Store) CountOrphanedNotifications(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, note := range s.notifications {
		if _, ok := s.questions[note.QuestionID]; !ok {
			n++
		}
	}
	return n, nil
}

func (s *Store) RepairReputation(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	u.Reputation = s.expectedReputationLocked(userID)
	return u.Reputation, nil
}

func (s *Store) RepairAnswerCount(_ context.Context, questionID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return 0, domain.ErrQuestionNotFound
	}
	q.AnswerCount = s.liveAnswerCountLocked(questionID)
	q.Version++
	return q.AnswerCount, nil
}

// RepairAcceptance keeps the question's pointer when it names one of its own answers
// and clears every other accepted flag. A dangling pointer is dropped.
func (s *Store) RepairAcceptance(_ context.Context, questionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return domain.ErrQuestionNotFound
	}

	if q.AcceptedAnswerID != nil {
		a, ok := s.answers[*q.AcceptedAnswerID]
		if !ok || a.QuestionID != questionID {
			q.AcceptedAnswerID = nil
		} else if !a.IsAccepted {
			a.IsAccepted = true
			a.Version++
		}
	}

	for _, a := range s.answers {
		if a.QuestionID != questionID || !a.IsAccepted {
			continue
		}
		if q.AcceptedAnswerID == nil || *q.AcceptedAnswerID != a.ID {
			clearAcceptance(a)
		}
	}
	q.Version++
	return nil
}

func (s *Store) DeleteOrphanedNotifications(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, n := range s.notifications {
		if _, ok := s.questions[n.QuestionID]; !ok {
			delete(s.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}
