package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InitialReputation is the reputation of a user who has received no votes.
const InitialReputation = 1

type User struct {
	ID          uuid.UUID
	ExternalID  string
	DisplayName string
	Email       string
	AvatarURL   string
	PushToken   string
	Reputation  int
	IsActive    bool
	JoinedAt    time.Time
	LastSeenAt  time.Time
}

// Identity is what the authentication collaborator vouches for.
type Identity struct {
	ExternalID  string
	DisplayName string
	Email       string
	AvatarURL   string
	PushToken   string
}

type UserRepository interface {
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*User, error)
	// UpsertUser creates the user on first sign-in and refreshes profile fields afterwards.
	// Reputation is never touched by an upsert.
	UpsertUser(ctx context.Context, identity Identity, at time.Time) (*User, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
	SetPushToken(ctx context.Context, id uuid.UUID, token string) error
}

// Profile is the public view of a user with their recent activity.
type Profile struct {
	User            *User
	QuestionCount   int
	AnswerCount     int
	RecentQuestions []*Question
	RecentAnswers   []*Answer
}

// TotalVotes is the net vote sum received, derived from the reputation ledger.
func (p *Profile) TotalVotes() int {
	return p.User.Reputation - InitialReputation
}
