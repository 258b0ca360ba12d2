package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

func (s *Store) Accept(_ context.Context, questionID, answerID, actingUserID uuid.UUID, at time.Time, decide domain.AcceptDecision) (*domain.AcceptResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	a, ok := s.answers[answerID]
	if !ok {
		return nil, domain.ErrAnswerNotFound
	}

	apply, note, err := decide(cloneQuestion(q), cloneAnswer(a))
	if err != nil {
		return nil, err
	}
	if !apply {
		return &domain.AcceptResult{Question: cloneQuestion(q), Answer: cloneAnswer(a)}, nil
	}

	id := answerID
	q.AcceptedAnswerID = &id
	q.Version++
	q.UpdatedAt = at

	acceptedAt, acceptedBy := at, actingUserID
	a.IsAccepted = true
	a.AcceptedAt = &acceptedAt
	a.AcceptedBy = &acceptedBy
	a.Version++
	a.UpdatedAt = at

	if note != nil {
		s.notifications[note.ID] = cloneNotification(note)
	}

	return &domain.AcceptResult{
		Question:     cloneQuestion(q),
		Answer:       cloneAnswer(a),
		Applied:      true,
		Notification: note,
	}, nil
}

func (s *Store) Unaccept(_ context.Context, questionID uuid.UUID, decide domain.UnacceptDecision) (*domain.Question, *domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.questions[questionID]
	if !ok {
		return nil, nil, domain.ErrQuestionNotFound
	}
	if err := decide(cloneQuestion(q)); err != nil {
		return nil, nil, err
	}

	var cleared *domain.Answer
	if q.AcceptedAnswerID != nil {
		if a, ok := s.answers[*q.AcceptedAnswerID]; ok {
			clearAcceptance(a)
			cleared = cloneAnswer(a)
		}
	}
	q.AcceptedAnswerID = nil
	q.Version++

	return cloneQuestion(q), cleared, nil
}

func clearAcceptance(a *domain.Answer) {
	a.IsAccepted = false
	a.AcceptedAt = nil
	a.AcceptedBy = nil
	a.Version++
}
