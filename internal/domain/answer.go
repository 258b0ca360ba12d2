package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Answer struct {
	ID         uuid.UUID
	QuestionID uuid.UUID
	OwnerID    uuid.UUID
	Content    string
	VoteCount  int
	IsAccepted bool
	AcceptedAt *time.Time
	AcceptedBy *uuid.UUID
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AnswerNotice runs while the question is locked for a new answer and returns the
// notification to persist with it, or nil.
type AnswerNotice func(q *Question) *Notification

type AnswerRepository interface {
	// CreateAnswer inserts the answer, increments the question's answer count and stores the
	// notification built by notice, all in one unit. It returns the question as it was after
	// the increment and the stored notification, if any.
	CreateAnswer(ctx context.Context, a *Answer, notice AnswerNotice) (*Question, *Notification, error)
	GetAnswer(ctx context.Context, id uuid.UUID) (*Answer, error)
	ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*Answer, error)
	// ListAnswersByOwner returns the owner's answers, newest first.
	ListAnswersByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*Answer, error)
	CountAnswersByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	// UpdateAnswer locks the answer, lets edit change its content and bumps the version.
	UpdateAnswer(ctx context.Context, id uuid.UUID, at time.Time, edit func(a *Answer) error) (*Answer, error)
	// DeleteAnswer locks the owning question, runs guard, clears acceptance if the answer was
	// accepted, decrements the answer count and removes the answer's vote weight from its owner.
	DeleteAnswer(ctx context.Context, id uuid.UUID, guard func(q *Question, a *Answer) error) (*Answer, error)
}
