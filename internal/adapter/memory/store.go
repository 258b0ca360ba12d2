// Package memory is an in-process implementation of domain.Ledger for development and tests.
// A single mutex serializes every write, so each method is one atomic unit. Unlike the
// postgres store, votes on different votables do not proceed in parallel here; run the
// postgres backend wherever write concurrency matters.
package memory

import (
	"sync"

	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

type Store struct {
	mu sync.RWMutex

	users         map[uuid.UUID]*domain.User
	usersByExtID  map[string]uuid.UUID
	questions     map[uuid.UUID]*domain.Question
	answers       map[uuid.UUID]*domain.Answer
	questionVotes map[uuid.UUID]map[uuid.UUID]domain.Vote
	answerVotes   map[uuid.UUID]map[uuid.UUID]domain.Vote
	notifications map[uuid.UUID]*domain.Notification
}

var _ domain.Ledger = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*domain.User),
		usersByExtID:  make(map[string]uuid.UUID),
		questions:     make(map[uuid.UUID]*domain.Question),
		answers:       make(map[uuid.UUID]*domain.Answer),
		questionVotes: make(map[uuid.UUID]map[uuid.UUID]domain.Vote),
		answerVotes:   make(map[uuid.UUID]map[uuid.UUID]domain.Vote),
		notifications: make(map[uuid.UUID]*domain.Notification),
	}
}

func (s *Store) votesFor(kind domain.VotableKind) map[uuid.UUID]map[uuid.UUID]domain.Vote {
	if kind == domain.KindQuestion {
		return s.questionVotes
	}
	return s.answerVotes
}

func sumVotes(votes map[uuid.UUID]domain.Vote) int {
	total := 0
	for _, v := range votes {
		total += int(v.Value)
	}
	return total
}

// adjustReputationLocked applies delta to the user's reputation. Votes on content whose
// owner row is gone have nobody to credit.
func (s *Store) adjustReputationLocked(userID uuid.UUID, delta int) {
	if delta == 0 {
		return
	}
	if u, ok := s.users[userID]; ok {
		u.Reputation += delta
	}
}

func cloneQuestion(q *domain.Question) *domain.Question {
	c := *q
	c.Tags = append([]string(nil), q.Tags...)
	if q.AcceptedAnswerID != nil {
		id := *q.AcceptedAnswerID
		c.AcceptedAnswerID = &id
	}
	if q.BountyExpiresAt != nil {
		t := *q.BountyExpiresAt
		c.BountyExpiresAt = &t
	}
	return &c
}

func cloneAnswer(a *domain.Answer) *domain.Answer {
	c := *a
	if a.AcceptedAt != nil {
		t := *a.AcceptedAt
		c.AcceptedAt = &t
	}
	if a.AcceptedBy != nil {
		id := *a.AcceptedBy
		c.AcceptedBy = &id
	}
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	c := *n
	if n.AnswerID != nil {
		id := *n.AnswerID
		c.AnswerID = &id
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		c.ReadAt = &t
	}
	return &c
}

// pageOf copies items[offset:offset+limit], clamped to the slice. An offset past the end
// yields an empty page.
func pageOf[T any](items []*T, offset, limit int, clone func(*T) *T) []*T {
	out := make([]*T, 0, min(max(limit, 0), len(items)))
	if offset < 0 || offset >= len(items) {
		return out
	}
	for _, item := range items[offset:] {
		if len(out) == limit {
			break
		}
		out = append(out, clone(item))
	}
	return out
}
