package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/config"
)

// --- Mock implementations ---

type mockContent struct {
	ensureUserFn     func(ctx context.Context, identity domain.Identity) (*domain.User, error)
	getUserFn        func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	createQuestionFn func(ctx context.Context, ownerID uuid.UUID, title, content string, tags []string) (*domain.Question, error)
	getQuestionFn    func(ctx context.Context, id uuid.UUID) (*domain.Question, error)
	recordViewFn     func(ctx context.Context, id uuid.UUID) (int, error)
	createAnswerFn   func(ctx context.Context, questionID, ownerID uuid.UUID, content string) (*domain.Answer, error)
	listAnswersFn    func(ctx context.Context, questionID uuid.UUID) ([]*domain.Answer, error)
	deleteAnswerFn   func(ctx context.Context, answerID, actingUserID uuid.UUID) error
	deleteQuestionFn func(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.CascadeResult, error)
	updateQuestionFn func(ctx context.Context, questionID, actingUserID uuid.UUID, title, content string, tags []string) (*domain.Question, error)
	getAnswerFn      func(ctx context.Context, id uuid.UUID) (*domain.Answer, error)
	updateAnswerFn   func(ctx context.Context, answerID, actingUserID uuid.UUID, content string) (*domain.Answer, error)
	getProfileFn     func(ctx context.Context, userID uuid.UUID) (*domain.Profile, error)
	userQuestionsFn  func(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Question, error)
	userAnswersFn    func(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Answer, error)
	touchLastSeenFn  func(ctx context.Context, userID uuid.UUID) error
	setPushTokenFn   func(ctx context.Context, userID uuid.UUID, token string) error
}

func (m *mockContent) EnsureUser(ctx context.Context, identity domain.Identity) (*domain.User, error) {
	if m.ensureUserFn != nil {
		return m.ensureUserFn(ctx, identity)
	}
	return nil, errors.New("not implemented")
}

// GetUser reports every user as existing unless overridden, so sessions pass requireAuth.
func (m *mockContent) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.getUserFn != nil {
		return m.getUserFn(ctx, id)
	}
	return &domain.User{ID: id, DisplayName: "tester", Reputation: domain.InitialReputation}, nil
}

func (m *mockContent) CreateQuestion(ctx context.Context, ownerID uuid.UUID, title, content string, tags []string) (*domain.Question, error) {
	if m.createQuestionFn != nil {
		return m.createQuestionFn(ctx, ownerID, title, content, tags)
	}
	return nil, errors.New("not implemented")
}

func (m *mockContent) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	if m.getQuestionFn != nil {
		return m.getQuestionFn(ctx, id)
	}
	return nil, domain.ErrQuestionNotFound
}

func (m *mockContent) RecordView(ctx context.Context, id uuid.UUID) (int, error) {
	if m.recordViewFn != nil {
		return m.recordViewFn(ctx, id)
	}
	return 0, domain.ErrQuestionNotFound
}

func (m *mockContent) CreateAnswer(ctx context.Context, questionID, ownerID uuid.UUID, content string) (*domain.Answer, error) {
	if m.createAnswerFn != nil {
		return m.createAnswerFn(ctx, questionID, ownerID, content)
	}
	return nil, errors.New("not implemented")
}

func (m *mockContent) ListAnswers(ctx context.Context, questionID uuid.UUID) ([]*domain.Answer, error) {
	if m.listAnswersFn != nil {
		return m.listAnswersFn(ctx, questionID)
	}
	return nil, nil
}

func (m *mockContent) DeleteAnswer(ctx context.Context, answerID, actingUserID uuid.UUID) error {
	if m.deleteAnswerFn != nil {
		return m.deleteAnswerFn(ctx, answerID, actingUserID)
	}
	return errors.New("not implemented")
}

func (m *mockContent) DeleteQuestion(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.CascadeResult, error) {
	if m.deleteQuestionFn != nil {
		return m.deleteQuestionFn(ctx, questionID, actingUserID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockContent) UpdateQuestion(ctx context.Context, questionID, actingUserID uuid.UUID, title, content string, tags []string) (*domain.Question, error) {
	if m.updateQuestionFn != nil {
		return m.updateQuestionFn(ctx, questionID, actingUserID, title, content, tags)
	}
	return nil, errors.New("not implemented")
}

func (m *mockContent) GetAnswer(ctx context.Context, id uuid.UUID) (*domain.Answer, error) {
	if m.getAnswerFn != nil {
		return m.getAnswerFn(ctx, id)
	}
	return nil, domain.ErrAnswerNotFound
}

func (m *mockContent) UpdateAnswer(ctx context.Context, answerID, actingUserID uuid.UUID, content string) (*domain.Answer, error) {
	if m.updateAnswerFn != nil {
		return m.updateAnswerFn(ctx, answerID, actingUserID, content)
	}
	return nil, errors.New("not implemented")
}

func (m *mockContent) GetProfile(ctx context.Context, userID uuid.UUID) (*domain.Profile, error) {
	if m.getProfileFn != nil {
		return m.getProfileFn(ctx, userID)
	}
	return nil, domain.ErrUserNotFound
}

func (m *mockContent) ListUserQuestions(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Question, error) {
	if m.userQuestionsFn != nil {
		return m.userQuestionsFn(ctx, userID, page, limit)
	}
	return nil, nil
}

func (m *mockContent) ListUserAnswers(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Answer, error) {
	if m.userAnswersFn != nil {
		return m.userAnswersFn(ctx, userID, page, limit)
	}
	return nil, nil
}

func (m *mockContent) TouchLastSeen(ctx context.Context, userID uuid.UUID) error {
	if m.touchLastSeenFn != nil {
		return m.touchLastSeenFn(ctx, userID)
	}
	return nil
}

func (m *mockContent) SetPushToken(ctx context.Context, userID uuid.UUID, token string) error {
	if m.setPushTokenFn != nil {
		return m.setPushTokenFn(ctx, userID, token)
	}
	return nil
}

type mockEngine struct {
	castVoteFn       func(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, value domain.VoteValue) (domain.VoteOutcome, error)
	getUserVoteFn    func(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (domain.VoteValue, error)
	acceptAnswerFn   func(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.AcceptResult, error)
	unacceptAnswerFn func(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.Question, error)
	unacceptByIDFn   func(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.Question, error)
}

func (m *mockEngine) CastVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID, value domain.VoteValue) (domain.VoteOutcome, error) {
	if m.castVoteFn != nil {
		return m.castVoteFn(ctx, ref, voterID, value)
	}
	return domain.VoteOutcome{}, errors.New("not implemented")
}

func (m *mockEngine) GetUserVote(ctx context.Context, ref domain.VotableRef, voterID uuid.UUID) (domain.VoteValue, error) {
	if m.getUserVoteFn != nil {
		return m.getUserVoteFn(ctx, ref, voterID)
	}
	return domain.VoteNone, nil
}

func (m *mockEngine) AcceptAnswer(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.AcceptResult, error) {
	if m.acceptAnswerFn != nil {
		return m.acceptAnswerFn(ctx, questionID, answerID, actingUserID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEngine) UnacceptAnswer(ctx context.Context, questionID, actingUserID uuid.UUID) (*domain.Question, error) {
	if m.unacceptAnswerFn != nil {
		return m.unacceptAnswerFn(ctx, questionID, actingUserID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockEngine) UnacceptAnswerByID(ctx context.Context, questionID, answerID, actingUserID uuid.UUID) (*domain.Question, error) {
	if m.unacceptByIDFn != nil {
		return m.unacceptByIDFn(ctx, questionID, answerID, actingUserID)
	}
	return nil, errors.New("not implemented")
}

type mockInbox struct {
	listFn      func(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Notification, error)
	unreadFn    func(ctx context.Context, userID uuid.UUID) (int, error)
	markReadFn  func(ctx context.Context, userID, id uuid.UUID) error
	markAllFn   func(ctx context.Context, userID uuid.UUID) (int, error)
	deleteFn    func(ctx context.Context, userID, id uuid.UUID) error
	deleteAllFn func(ctx context.Context, userID uuid.UUID) (int, error)
}

func (m *mockInbox) ListNotifications(ctx context.Context, userID uuid.UUID, page, limit int) ([]*domain.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, page, limit)
	}
	return nil, nil
}

func (m *mockInbox) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.unreadFn != nil {
		return m.unreadFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockInbox) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, userID, id)
	}
	return nil
}

func (m *mockInbox) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.markAllFn != nil {
		return m.markAllFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockInbox) DeleteNotification(ctx context.Context, userID, id uuid.UUID) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockInbox) DeleteAllNotifications(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx, userID)
	}
	return 0, nil
}

// fakeIdempotencyStore keeps keys in a map with the same state machine as the Redis store.
type fakeIdempotencyStore struct {
	mu        sync.Mutex
	completed map[string]domain.StoredResponse
	pending   map[string]bool
	beginErr  error
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{
		completed: make(map[string]domain.StoredResponse),
		pending:   make(map[string]bool),
	}
}

func (f *fakeIdempotencyStore) Begin(_ context.Context, scope, key string) (*domain.StoredResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	k := scope + ":" + key
	if resp, ok := f.completed[k]; ok {
		return &resp, nil
	}
	if f.pending[k] {
		return nil, domain.ErrRequestInFlight
	}
	f.pending[k] = true
	return nil, nil
}

func (f *fakeIdempotencyStore) Complete(_ context.Context, scope, key string, resp domain.StoredResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := scope + ":" + key
	delete(f.pending, k)
	f.completed[k] = resp
	return nil
}

func (f *fakeIdempotencyStore) Abandon(_ context.Context, scope, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.pending, scope+":"+key)
	return nil
}

// --- Helpers ---

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:        "test",
		StoreBackend:  config.BackendPostgres,
		Port:          "0",
		SessionSecret: "test-secret-key-32-bytes-long!!!",
		SessionMaxAge: time.Hour,
	}
}

func newTestServer(t *testing.T, content *mockContent, engine *mockEngine, inbox *mockInbox, opts ...Option) *Server {
	t.Helper()
	if content == nil {
		content = &mockContent{}
	}
	if engine == nil {
		engine = &mockEngine{}
	}
	if inbox == nil {
		inbox = &mockInbox{}
	}
	return NewServer(testConfig(), content, engine, inbox, opts...)
}

// newAuthedContext builds a handler context that has already passed requireAuth.
func newAuthedContext(srv *Server, method, target, body string, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := srv.echo.NewContext(req, rec)
	c.Set(contextKeyUserID, userID)
	return c, rec
}

func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware()(handler)(c)
}

// sessionCookies signs userID into a session cookie the way sign-in does.
func sessionCookies(t *testing.T, srv *Server, userID uuid.UUID) []*http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	session, err := srv.sessionStore.New(req, sessionName)
	require.NoError(t, err)
	session.Values[sessionKeyToken] = userID.String()
	require.NoError(t, session.Save(req, rec))
	return rec.Result().Cookies()
}

// csrfToken performs GET /api/me and returns the session plus CSRF cookies and the token.
func csrfToken(t *testing.T, srv *Server, userID uuid.UUID) ([]*http.Cookie, string) {
	t.Helper()
	cookies := sessionCookies(t, srv, userID)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var token string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == csrfCookieName {
			token = ck.Value
			cookies = append(cookies, ck)
		}
	}
	require.NotEmpty(t, token)
	return cookies, token
}

func withCookies(req *http.Request, cookies []*http.Cookie) *http.Request {
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}
