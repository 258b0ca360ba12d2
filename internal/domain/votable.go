package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type VotableKind string

const (
	KindQuestion VotableKind = "question"
	KindAnswer   VotableKind = "answer"
)

func ParseVotableKind(s string) (VotableKind, error) {
	switch VotableKind(s) {
	case KindQuestion, KindAnswer:
		return VotableKind(s), nil
	default:
		return "", ErrInvalidVotableKind
	}
}

// VotableRef addresses a question or an answer.
type VotableRef struct {
	Kind VotableKind
	ID   uuid.UUID
}

func QuestionRef(id uuid.UUID) VotableRef { return VotableRef{Kind: KindQuestion, ID: id} }
func AnswerRef(id uuid.UUID) VotableRef   { return VotableRef{Kind: KindAnswer, ID: id} }

type VoteValue int

const (
	VoteNone VoteValue = 0
	VoteDown VoteValue = -1
	VoteUp   VoteValue = 1
)

func (v VoteValue) Valid() bool {
	return v == VoteUp || v == VoteDown
}

type Vote struct {
	VoterID   uuid.UUID
	Value     VoteValue
	CreatedAt time.Time
}

type VoteAction string

const (
	VoteInserted VoteAction = "inserted"
	VoteRemoved  VoteAction = "removed"
	VoteReplaced VoteAction = "replaced"
)

// VoteChange describes what one cast does to a votable's vote set.
// Value is the voter's vote after the change (VoteNone when removed);
// Delta is the net change of the vote sum.
type VoteChange struct {
	Action VoteAction
	Value  VoteValue
	Delta  int
}

type VoteOutcome struct {
	Action          VoteAction
	VoteCount       int
	ReputationDelta int
	UserVote        VoteValue
	OwnerID         uuid.UUID
}

// VoteDecision is evaluated by the store while it holds the votable's lock.
// existing is nil when the voter has not voted yet.
type VoteDecision func(ownerID uuid.UUID, existing *Vote) (VoteChange, error)

// VoteLedger applies vote mutations. ApplyVote must run the read of the voter's current vote,
// the decision, the vote-set write, the derived count update and the owner's reputation delta
// as one atomic unit per votable. Store-level contention is reported as ErrWriteConflict.
type VoteLedger interface {
	ApplyVote(ctx context.Context, ref VotableRef, voterID uuid.UUID, at time.Time, decide VoteDecision) (VoteOutcome, error)
	GetVote(ctx context.Context, ref VotableRef, voterID uuid.UUID) (*Vote, error)
}
