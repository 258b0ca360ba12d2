package errors

import (
	"errors"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// domainSentinels is searched in order; the first match supplies the client-facing message.
var domainSentinels = []error{
	domain.ErrQuestionNotFound,
	domain.ErrAnswerNotFound,
	domain.ErrVotableNotFound,
	domain.ErrUserNotFound,
	domain.ErrNotificationNotFound,
	domain.ErrSelfVote,
	domain.ErrNotOwner,
	domain.ErrAlreadyAccepted,
	domain.ErrNotAccepted,
	domain.ErrAnswerNotOfQuestion,
	domain.ErrAlreadyAnswered,
	domain.ErrRequestInFlight,
	domain.ErrWriteConflict,
	domain.ErrInvalidVoteValue,
	domain.ErrInvalidVotableKind,
	domain.ErrInvalidNotificationKind,
	domain.ErrInvalidIdentity,
	domain.ErrInvalidContent,
	domain.ErrInvalidPagination,
	domain.ErrInvalidPushToken,
}

// FromDomain maps a domain error onto a structured error by its kind.
// Errors that carry no domain kind become internal errors.
func FromDomain(err error) *Error {
	if err == nil {
		return nil
	}
	if structuredErr, ok := errors.AsType[*Error](err); ok {
		return structuredErr
	}

	message := err.Error()
	for _, sentinel := range domainSentinels {
		if errors.Is(err, sentinel) {
			message = sentinel.Error()
			break
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return ValidationError(message)
	case errors.Is(err, domain.ErrNotFound):
		return NotFoundError(message)
	case errors.Is(err, domain.ErrPermissionDenied):
		return ForbiddenError(message, err)
	case errors.Is(err, domain.ErrConflict):
		return ConflictError(message)
	case errors.Is(err, domain.ErrTransient):
		return TransientError("the request could not be completed, retry later", err)
	case errors.Is(err, domain.ErrDeliveryFailure):
		return ExternalError("notification delivery failed", err)
	default:
		return InternalError("internal server error", err)
	}
}
