package httpserver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/correlation"
	apperrors "github.com/NirdeshGothania/stackit/internal/platform/errors"
)

const (
	idempotencyHeader       = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	maxIdempotencyKeyLength = 255
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := correlation.FromHeader(c.Request().Header.Get(correlation.HeaderName))
		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.HeaderName, id)
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			// Echo's own errors (routing, CSRF, binding) get the same JSON shape when their
			// status has a structured equivalent.
			if httpErr, ok := errors.AsType[*echo.HTTPError](err); ok {
				wrapped := WrapHTTPError(httpErr)
				if wrapped.HTTPStatus() != httpErr.Code {
					return err
				}
				err = wrapped
			}

			structuredErr := apperrors.FromDomain(err)
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	ctx := c.Request().Context()
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if userID := c.Get(contextKeyUserID); userID != nil {
		attrs = append(attrs, "user_id", userID)
	}

	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeUnauthorized:
		slog.InfoContext(ctx, "Unauthorized", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Forbidden", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeTransient:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.WarnContext(ctx, "Transient error", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := "internal server error"
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusServiceUnavailable:
		errType = apperrors.TypeTransient
	case http.StatusBadGateway:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}

// bodyRecorder tees everything written to the client so the response can be stored.
type bodyRecorder struct {
	http.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// idempotent replays the first successful response stored for (user, Idempotency-Key).
// It must run after requireAuth. Requests without the header pass straight through.
func (s *Server) idempotent(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		key := c.Request().Header.Get(idempotencyHeader)
		if s.idempotency == nil || key == "" {
			return next(c)
		}
		if len(key) > maxIdempotencyKeyLength {
			return apperrors.ValidationError("Idempotency-Key is too long").WithField("max_length", maxIdempotencyKeyLength)
		}

		ctx := c.Request().Context()
		scope := currentUserID(c).String()

		stored, err := s.idempotency.Begin(ctx, scope, key)
		switch {
		case errors.Is(err, domain.ErrRequestInFlight):
			s.recordIdempotency("in_flight")
			return err
		case err != nil:
			s.recordIdempotency("error")
			return apperrors.TransientError("idempotency store unavailable", err)
		case stored != nil:
			s.recordIdempotency("replayed")
			c.Response().Header().Set(idempotencyReplayHeader, "true")
			return c.Blob(stored.Status, stored.ContentType, stored.Body)
		}
		s.recordIdempotency("first")

		// The outcome is persisted even if the client has gone away.
		detached := context.WithoutCancel(ctx)

		writer := c.Response().Writer
		rec := &bodyRecorder{ResponseWriter: writer}
		c.Response().Writer = rec
		err = next(c)
		c.Response().Writer = writer

		if err != nil || c.Response().Status >= http.StatusInternalServerError {
			if abandonErr := s.idempotency.Abandon(detached, scope, key); abandonErr != nil {
				slog.WarnContext(ctx, "Failed to release idempotency key", "key", key, "error", abandonErr)
			}
			return err
		}

		resp := domain.StoredResponse{
			Status:      c.Response().Status,
			ContentType: c.Response().Header().Get(echo.HeaderContentType),
			Body:        rec.body.Bytes(),
		}
		if completeErr := s.idempotency.Complete(detached, scope, key, resp); completeErr != nil {
			slog.WarnContext(ctx, "Failed to store idempotent response", "key", key, "error", completeErr)
		}
		return nil
	}
}

func (s *Server) recordIdempotency(outcome string) {
	if s.idempotencyMetrics != nil {
		s.idempotencyMetrics.Outcomes.WithLabelValues(outcome).Inc()
	}
}
