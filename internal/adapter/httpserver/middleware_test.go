package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/correlation"
	apperrors "github.com/NirdeshGothania/stackit/internal/platform/errors"
)

func TestMiddlewareWithStructuredError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return apperrors.ValidationError("invalid input")
	})

	err := handler(c)
	require.NoError(t, err) // ErrorHandlingMiddleware handles the error, doesn't return it

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid input", resp.Error)
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
}

func TestMiddlewareWithStandardError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return errors.New("standard error")
	})

	err := handler(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "internal server error", resp.Error)
	assert.Equal(t, apperrors.TypeInternal, resp.Type)
}

func TestMiddlewareWithNoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "success")
	})

	err := handler(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", rec.Body.String())
}

func TestMiddlewareWithContext(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(contextKeyUserID, uuid.New())

	handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
		return apperrors.NotFoundError("user not found").
			WithContext("user_id", "123").
			WithContext("query", "SELECT * FROM users")
	})

	err := handler(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "user not found", resp.Error)
	assert.Equal(t, apperrors.TypeNotFound, resp.Type)
	assert.Len(t, resp.Context, 2)
	assert.Equal(t, "123", resp.Context["user_id"])
	assert.Equal(t, "SELECT * FROM users", resp.Context["query"])
}

func TestMiddlewareAllErrorTypes(t *testing.T) {
	tests := []struct {
		name       string
		err        *apperrors.Error
		wantStatus int
		wantType   apperrors.ErrorType
	}{
		{
			name:       "validation",
			err:        apperrors.ValidationError("invalid"),
			wantStatus: http.StatusBadRequest,
			wantType:   apperrors.TypeValidation,
		},
		{
			name:       "not_found",
			err:        apperrors.NotFoundError("missing"),
			wantStatus: http.StatusNotFound,
			wantType:   apperrors.TypeNotFound,
		},
		{
			name:       "conflict",
			err:        apperrors.ConflictError("duplicate"),
			wantStatus: http.StatusConflict,
			wantType:   apperrors.TypeConflict,
		},
		{
			name:       "internal",
			err:        apperrors.InternalError("failed", errors.New("cause")),
			wantStatus: http.StatusInternalServerError,
			wantType:   apperrors.TypeInternal,
		},
		{
			name:       "external",
			err:        apperrors.ExternalError("api failed", errors.New("timeout")),
			wantStatus: http.StatusBadGateway,
			wantType:   apperrors.TypeExternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := ErrorHandlingMiddleware()(func(c echo.Context) error {
				return tt.err
			})

			err := handler(c)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantType, resp.Type)
		})
	}
}

func TestWrapHTTPError(t *testing.T) {
	tests := []struct {
		name       string
		httpErr    *echo.HTTPError
		wantType   apperrors.ErrorType
		wantStatus int
	}{
		{
			name:       "bad_request",
			httpErr:    echo.NewHTTPError(http.StatusBadRequest, "bad request"),
			wantType:   apperrors.TypeValidation,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthorized",
			httpErr:    echo.NewHTTPError(http.StatusUnauthorized, "unauthorized"),
			wantType:   apperrors.TypeUnauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forbidden",
			httpErr:    echo.NewHTTPError(http.StatusForbidden, "invalid csrf token"),
			wantType:   apperrors.TypeForbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "not_found",
			httpErr:    echo.NewHTTPError(http.StatusNotFound, "not found"),
			wantType:   apperrors.TypeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict",
			httpErr:    echo.NewHTTPError(http.StatusConflict, "conflict"),
			wantType:   apperrors.TypeConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "bad_gateway",
			httpErr:    echo.NewHTTPError(http.StatusBadGateway, "bad gateway"),
			wantType:   apperrors.TypeExternal,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "service_unavailable",
			httpErr:    echo.NewHTTPError(http.StatusServiceUnavailable, "unavailable"),
			wantType:   apperrors.TypeTransient,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "internal_server_error",
			httpErr:    echo.NewHTTPError(http.StatusInternalServerError, "internal error"),
			wantType:   apperrors.TypeInternal,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapHTTPError(tt.httpErr)

			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.wantStatus, err.HTTPStatus())
		})
	}
}

func TestWrapHTTPErrorWithInternalCause(t *testing.T) {
	cause := errors.New("underlying cause")
	httpErr := echo.NewHTTPError(http.StatusInternalServerError, "wrapped")
	httpErr.Internal = cause

	err := WrapHTTPError(httpErr)

	assert.Equal(t, apperrors.TypeInternal, err.Type)
	assert.Equal(t, cause, err.Cause)
}

func TestWrapHTTPErrorWithNonStringMessage(t *testing.T) {
	httpErr := echo.NewHTTPError(http.StatusBadRequest, 12345)

	err := WrapHTTPError(httpErr)

	assert.Equal(t, "internal server error", err.Message) // Fallback message
	assert.Equal(t, apperrors.TypeValidation, err.Type)
}

func TestWrapHTTPErrorWithNilMessage(t *testing.T) {
	httpErr := &echo.HTTPError{
		Code:    http.StatusBadRequest,
		Message: nil,
	}

	err := WrapHTTPError(httpErr)

	assert.Equal(t, "internal server error", err.Message) // Fallback message
	assert.Equal(t, apperrors.TypeValidation, err.Type)
}

func TestMiddlewareMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantMsg    string
	}{
		{domain.ErrQuestionNotFound, http.StatusNotFound, "question not found"},
		{fmt.Errorf("failed to cast vote: %w", domain.ErrSelfVote), http.StatusForbidden, "cannot vote on own content"},
		{domain.ErrAlreadyAccepted, http.StatusConflict, "another answer is already accepted"},
		{domain.ErrInvalidVoteValue, http.StatusBadRequest, "vote value must be -1 or 1"},
		{domain.ErrWriteConflict, http.StatusServiceUnavailable, "the request could not be completed, retry later"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/test", nil), rec)

			err := ErrorHandlingMiddleware()(func(echo.Context) error { return tt.err })(c)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var resp apperrors.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantMsg, resp.Error)
		})
	}
}

func TestMiddlewareWrapsEchoErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/test", nil), rec)

	err := ErrorHandlingMiddleware()(func(echo.Context) error {
		return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
	})(c)
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeForbidden, resp.Type)
}

func TestMiddlewarePassesUnmappedEchoErrors(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPut, "/test", nil), httptest.NewRecorder())

	err := ErrorHandlingMiddleware()(func(echo.Context) error {
		return echo.ErrMethodNotAllowed
	})(c)

	assert.ErrorIs(t, err, echo.ErrMethodNotAllowed)
}

func TestCorrelationMiddleware(t *testing.T) {
	t.Run("reuses inbound id", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(correlation.HeaderName, "deadbeef")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		var seen string
		err := correlationMiddleware(func(c echo.Context) error {
			seen, _ = correlation.ID(c.Request().Context())
			return nil
		})(c)
		require.NoError(t, err)

		assert.Equal(t, "deadbeef", seen)
		assert.Equal(t, "deadbeef", rec.Header().Get(correlation.HeaderName))
	})

	t.Run("mints id for garbage", func(t *testing.T) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(correlation.HeaderName, "not hex!")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)

		var seen string
		err := correlationMiddleware(func(c echo.Context) error {
			seen, _ = correlation.ID(c.Request().Context())
			return nil
		})(c)
		require.NoError(t, err)

		assert.Len(t, seen, 8)
		assert.NotEqual(t, "not hex!", seen)
	})
}
