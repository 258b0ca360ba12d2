package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/correlation"
	apperrors "github.com/NirdeshGothania/stackit/internal/platform/errors"
)

// Identity headers set by the authenticating gateway in front of this service.
const (
	headerAuthSubject = "X-Auth-Subject"
	headerAuthName    = "X-Auth-Name"
	headerAuthEmail   = "X-Auth-Email"
	headerAuthPicture = "X-Auth-Picture"
)

const (
	contextKeyUserID = "userID"
	csrfCookieName   = "csrf_token"
)

func (s *Server) registerAuthRoutes(csrfMiddleware, rateLimiter echo.MiddlewareFunc) {
	s.echo.POST("/auth/session", s.handleSignIn, rateLimiter)
	s.echo.POST("/auth/logout", s.handleLogout, rateLimiter, s.requireAuth, csrfMiddleware)
}

func currentUserID(c echo.Context) uuid.UUID {
	id, _ := c.Get(contextKeyUserID).(uuid.UUID)
	return id
}

func (s *Server) sessionUserID(c echo.Context) (uuid.UUID, bool) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return uuid.Nil, false
	}
	raw, ok := session.Values[sessionKeyToken].(string)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

func (s *Server) requireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := s.sessionUserID(c)
		if !ok {
			return apperrors.UnauthorizedError("authentication required")
		}

		// Verify the user still exists (handles wiped DB, deleted accounts).
		if _, err := s.content.GetUser(c.Request().Context(), userID); err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				return err
			}
			slog.WarnContext(c.Request().Context(), "Session references unknown user, invalidating", "user_id", userID)
			s.clearSession(c)
			return apperrors.UnauthorizedError("authentication required")
		}

		ctx := correlation.WithActor(c.Request().Context(), userID.String())
		c.SetRequest(c.Request().WithContext(ctx))
		c.Set(contextKeyUserID, userID)
		return next(c)
	}
}

func (s *Server) clearSession(c echo.Context) {
	session, err := s.sessionStore.Get(c.Request(), sessionName)
	if err != nil {
		return
	}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to clear session", "error", err)
	}
}

type signInRequest struct {
	PushToken string `json:"pushToken"`
}

// handleSignIn trusts the identity headers of the gateway and opens a session for that user.
func (s *Server) handleSignIn(c echo.Context) error {
	identity := domain.Identity{
		ExternalID:  c.Request().Header.Get(headerAuthSubject),
		DisplayName: c.Request().Header.Get(headerAuthName),
		Email:       c.Request().Header.Get(headerAuthEmail),
		AvatarURL:   c.Request().Header.Get(headerAuthPicture),
	}
	if identity.ExternalID == "" {
		return apperrors.UnauthorizedError("missing identity")
	}

	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	identity.PushToken = req.PushToken

	ctx := c.Request().Context()
	user, err := s.content.EnsureUser(ctx, identity)
	if err != nil {
		return err
	}

	// Always start from a fresh session so nothing from a pre-auth cookie carries over.
	session, err := s.sessionStore.New(c.Request(), sessionName)
	if err != nil {
		return apperrors.InternalError("failed to create session", err)
	}
	session.Values[sessionKeyToken] = user.ID.String()
	if err := session.Save(c.Request(), c.Response().Writer); err != nil {
		return apperrors.InternalError("failed to save session", err)
	}

	slog.InfoContext(ctx, "User signed in", "user_id", user.ID, "external_id", identity.ExternalID)

	if err := c.JSON(http.StatusOK, newUserResponse(user)); err != nil {
		return fmt.Errorf("failed to write sign-in response: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	s.clearSession(c)
	slog.InfoContext(c.Request().Context(), "User logged out", "user_id", currentUserID(c))
	return c.NoContent(http.StatusNoContent)
}

type meResponse struct {
	User      userResponse `json:"user"`
	CSRFToken string       `json:"csrfToken"`
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.content.GetUser(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}

	token, _ := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string)
	if err := c.JSON(http.StatusOK, meResponse{User: newUserResponse(user), CSRFToken: token}); err != nil {
		return fmt.Errorf("failed to write me response: %w", err)
	}
	return nil
}

// handleWebsocket hands the session user to centrifuge. Requests without a session reach the
// node without credentials and are rejected there.
func (s *Server) handleWebsocket(c echo.Context) error {
	req := c.Request()
	if userID, ok := s.sessionUserID(c); ok {
		ctx := centrifuge.SetCredentials(req.Context(), &centrifuge.Credentials{UserID: userID.String()})
		req = req.WithContext(ctx)
	}
	s.websocketHandler.ServeHTTP(c.Response(), req)
	return nil
}
