package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Question struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Title            string
	Content          string
	Tags             []string
	VoteCount        int
	AnswerCount      int
	ViewCount        int
	AcceptedAnswerID *uuid.UUID
	IsClosed         bool
	// Bounty and BountyExpiresAt are stored but no operation sets or expires them yet.
	Bounty          int
	BountyExpiresAt *time.Time
	Version         int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (q *Question) HasAcceptedAnswer() bool {
	return q.AcceptedAnswerID != nil
}

// CascadeResult reports what a question deletion removed.
type CascadeResult struct {
	QuestionID           uuid.UUID
	AnswersDeleted       int
	VotesDeleted         int
	NotificationsDeleted int
	ReputationAdjusted   map[uuid.UUID]int
	// Partial is set when the question is gone but its notifications could not be removed.
	Partial bool
}

type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*Question, error)
	IncrementViewCount(ctx context.Context, id uuid.UUID) (int, error)
	// ListQuestionsByOwner returns the owner's questions, newest first.
	ListQuestionsByOwner(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*Question, error)
	CountQuestionsByOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
	// UpdateQuestion locks the question, lets edit change title, content and tags and bumps
	// the version. Counters and acceptance are not editable.
	UpdateQuestion(ctx context.Context, id uuid.UUID, at time.Time, edit func(q *Question) error) (*Question, error)
	// DeleteQuestion removes the question, its answers and all their votes, and subtracts the
	// removed vote weight from each owner's reputation. Notifications are not touched.
	DeleteQuestion(ctx context.Context, id uuid.UUID, guard func(q *Question) error) (*CascadeResult, error)
}
