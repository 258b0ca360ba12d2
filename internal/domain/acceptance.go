package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AcceptDecision runs while the question and answer are locked. It reports whether the
// transition should be written and, optionally, a notification to persist in the same unit.
type AcceptDecision func(q *Question, a *Answer) (apply bool, note *Notification, err error)

// UnacceptDecision runs while the question is locked.
type UnacceptDecision func(q *Question) error

type AcceptResult struct {
	Question     *Question
	Answer       *Answer
	Applied      bool
	Notification *Notification
}

// AcceptanceStore writes both sides of the accepted-answer relation together.
type AcceptanceStore interface {
	Accept(ctx context.Context, questionID, answerID, actingUserID uuid.UUID, at time.Time, decide AcceptDecision) (*AcceptResult, error)
	Unaccept(ctx context.Context, questionID uuid.UUID, decide UnacceptDecision) (*Question, *Answer, error)
}
