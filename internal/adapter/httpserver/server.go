package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/config"
)

type contentService interface {
	EnsureUser(ctx context.Context, identity domain.Identity) (*domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	CreateQuestion(ctx context.Context, ownerID uuid.UUID, title, content string, tags []string) (*domain.Question, error)
	GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error)
	RecordView(ctx context.Context, id uuid.UUID) (int, error)
	UpdateQuestion(ctx context.Context, questionID, actingUserID uuid.UUID, title, content string, tags []string) (*domain.Question, error)
	CreateAnswer(ctx context.Context, questionID, ownerID uuid.UUID, content string) (*domain.Answer, error)
	GetAnswer(ctx context.Context, id uuid.UUID) (*domain.Answer, error)
	UpdateAnswer(ctx context.Context, answerID, actingUserID uuid.UUID, content string) (*domain.Answer, error)
	ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*domain.Answer, error)
	DeleteAnswer(ctx context.Context, answerID, actingUserID uuid.UUID) error
	DeleteQuestion(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.CascadeResult, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	ListUserQuestions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Question, error)
	ListUserAnswers(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Answer, error)
	TouchLastSeen(ctx context.Context, userID uuid.UUID) error
	SetPushToken(ctx context.Context, userID uuid.UUID, token string) error
}

type voteEngine interface {
	CastVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, value domain.VoteValue) (domain.VoteOutcome, error)
	GetUserVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (domain.VoteValue, error)
	AcceptAnswer(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.AcceptResult, error)
	UnacceptAnswer(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.Question, error)
	UnacceptAnswerByID(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.Question, error)
}

type inbox interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Notification, error)
	UnreadCount(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error)
	DeleteNotification(ctx context.Context, userID, notificationID uuid.UUID) error
	DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	content contentService
	engine  voteEngine
	inbox   inbox

	idempotency        domain.IdempotencyStore
	idempotencyMetrics *metrics.IdempotencyMetrics
	httpMetrics        *metrics.HTTPMetrics

	websocketHandler http.Handler
	metricsHandler   http.Handler

	sessionStore *sessions.CookieStore
	healthChecks []HealthCheck
	startTime    time.Time
}

type Option func(*Server)

// WithIdempotency enables Idempotency-Key handling on vote and acceptance routes.
func WithIdempotency(store domain.IdempotencyStore, m *metrics.IdempotencyMetrics) Option {
	return func(s *Server) {
		s.idempotency = store
		s.idempotencyMetrics = m
	}
}

func WithWebsocket(h http.Handler) Option {
	return func(s *Server) { s.websocketHandler = h }
}

// WithMetrics records request metrics and serves the registry on /metrics.
func WithMetrics(m *metrics.HTTPMetrics, handler http.Handler) Option {
	return func(s *Server) {
		s.httpMetrics = m
		s.metricsHandler = handler
	}
}

func WithHealthChecks(checks ...HealthCheck) Option {
	return func(s *Server) { s.healthChecks = append(s.healthChecks, checks...) }
}

func NewServer(cfg *config.Config, content contentService, engine voteEngine, inbox inbox, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		content:      content,
		engine:       engine,
		inbox:        inbox,
		sessionStore: setupSessionStore(cfg),
		startTime:    time.Now(),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Session keys
const (
	sessionName     = "stackit-session"
	sessionKeyToken = "token"
)

func setupSessionStore(cfg *config.Config) *sessions.CookieStore {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	return sessionStore
}
