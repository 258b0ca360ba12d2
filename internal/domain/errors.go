package domain

import "errors"

// Error kinds. Every sentinel below unwraps to exactly one of these, so callers can branch on
// the kind (errors.Is(err, ErrNotFound)) without knowing the concrete sentinel.
var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrTransient        = errors.New("transient failure")
	ErrDeliveryFailure  = errors.New("delivery failure")
	ErrInvalidInput     = errors.New("invalid input")
)

var (
	ErrVotableNotFound      = newError("votable not found", ErrNotFound)
	ErrQuestionNotFound     = newError("question not found", ErrVotableNotFound)
	ErrAnswerNotFound       = newError("answer not found", ErrVotableNotFound)
	ErrUserNotFound         = newError("user not found", ErrNotFound)
	ErrNotificationNotFound = newError("notification not found", ErrNotFound)

	ErrSelfVote = newError("cannot vote on own content", ErrPermissionDenied)
	ErrNotOwner = newError("only the owner may perform this action", ErrPermissionDenied)

	ErrAlreadyAccepted     = newError("another answer is already accepted", ErrConflict)
	ErrNotAccepted         = newError("question has no accepted answer", ErrConflict)
	ErrAnswerNotOfQuestion = newError("answer does not belong to this question", ErrConflict)
	ErrAlreadyAnswered     = newError("user has already answered this question", ErrConflict)

	ErrWriteConflict = newError("concurrent write conflict", ErrTransient)

	ErrInvalidVoteValue        = newError("vote value must be -1 or 1", ErrInvalidInput)
	ErrInvalidVotableKind      = newError("votable kind must be question or answer", ErrInvalidInput)
	ErrInvalidNotificationKind = newError("unknown notification kind", ErrInvalidInput)
	ErrInvalidIdentity         = newError("an external identity is required", ErrInvalidInput)
	ErrInvalidContent          = newError("title and content must not be empty", ErrInvalidInput)
	ErrInvalidPagination       = newError("page must be >= 1 and limit between 1 and 50", ErrInvalidInput)
	ErrInvalidPushToken        = newError("a push token is required", ErrInvalidInput)
)

type kindError struct {
	msg  string
	kind error
}

func newError(msg string, kind error) error {
	return &kindError{msg: msg, kind: kind}
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
