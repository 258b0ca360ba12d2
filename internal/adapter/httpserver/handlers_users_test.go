package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NirdeshGothania/stackit/internal/app"
	"github.com/NirdeshGothania/stackit/internal/domain"
)

func TestGetProfile(t *testing.T) {
	userID := uuid.New()
	content := &mockContent{
		getProfileFn: func(_ context.Context, id uuid.UUID) (*domain.Profile, error) {
			assert.Equal(t, userID, id)
			return &domain.Profile{
				User:            &domain.User{ID: id, DisplayName: "ada", Email: "ada@example.com", Reputation: 8},
				QuestionCount:   2,
				AnswerCount:     1,
				RecentQuestions: []*domain.Question{{ID: uuid.New(), OwnerID: id, Title: "How?"}},
				RecentAnswers:   []*domain.Answer{{ID: uuid.New(), OwnerID: id, Content: "Like so"}},
			}, nil
		},
	}
	srv := newTestServer(t, content, nil, nil)

	c, rec := newAuthedContext(srv, http.MethodGet, "/api/users/"+userID.String(), "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(userID.String())
	require.NoError(t, callHandler(srv.handleGetProfile, c))

	require.Equal(t, http.StatusOK, rec.Code)
	var body profileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ada", body.User.DisplayName)
	assert.Empty(t, body.User.Email)
	assert.Equal(t, profileStats{QuestionCount: 2, AnswerCount: 1, TotalVotes: 7}, body.Stats)
	assert.Len(t, body.RecentActivity.Questions, 1)
	assert.Len(t, body.RecentActivity.Answers, 1)
}

func TestGetProfile_UnknownUser(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	id := uuid.New()

	c, rec := newAuthedContext(srv, http.MethodGet, "/api/users/"+id.String(), "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	require.NoError(t, callHandler(srv.handleGetProfile, c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUserQuestions(t *testing.T) {
	userID := uuid.New()
	content := &mockContent{
		userQuestionsFn: func(_ context.Context, id uuid.UUID, page, limit int) ([]*domain.Question, error) {
			assert.Equal(t, userID, id)
			assert.Equal(t, 2, page)
			assert.Zero(t, limit)
			return []*domain.Question{{ID: uuid.New(), OwnerID: id}}, nil
		},
	}
	srv := newTestServer(t, content, nil, nil)

	c, rec := newAuthedContext(srv, http.MethodGet, "/api/users/"+userID.String()+"/questions?page=2", "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(userID.String())
	require.NoError(t, callHandler(srv.handleListUserQuestions, c))

	require.Equal(t, http.StatusOK, rec.Code)
	var body userQuestionsPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Questions, 1)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, app.ProfilePageSize, body.Limit)
}

func TestListUserAnswers_InvalidPage(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil)
	id := uuid.New()

	c, rec := newAuthedContext(srv, http.MethodGet, "/api/users/"+id.String()+"/answers?page=0", "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	require.NoError(t, callHandler(srv.handleListUserAnswers, c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUserAnswers(t *testing.T) {
	userID := uuid.New()
	content := &mockContent{
		userAnswersFn: func(_ context.Context, id uuid.UUID, page, limit int) ([]*domain.Answer, error) {
			assert.Equal(t, 5, limit)
			return []*domain.Answer{{ID: uuid.New(), OwnerID: id}, {ID: uuid.New(), OwnerID: id}}, nil
		},
	}
	srv := newTestServer(t, content, nil, nil)

	c, rec := newAuthedContext(srv, http.MethodGet, "/api/users/"+userID.String()+"/answers?limit=5", "", uuid.New())
	c.SetParamNames("id")
	c.SetParamValues(userID.String())
	require.NoError(t, callHandler(srv.handleListUserAnswers, c))

	require.Equal(t, http.StatusOK, rec.Code)
	var body userAnswersPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Answers, 2)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 5, body.Limit)
}

func TestTouchLastSeen(t *testing.T) {
	userID := uuid.New()
	var touched uuid.UUID
	content := &mockContent{
		touchLastSeenFn: func(_ context.Context, id uuid.UUID) error {
			touched = id
			return nil
		},
	}
	srv := newTestServer(t, content, nil, nil)

	c, rec := newAuthedContext(srv, http.MethodPost, "/api/me/last-seen", "", userID)
	require.NoError(t, callHandler(srv.handleTouchLastSeen, c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, userID, touched)
}

func TestSetPushToken(t *testing.T) {
	userID := uuid.New()

	t.Run("stores the token for the caller", func(t *testing.T) {
		var got string
		content := &mockContent{
			setPushTokenFn: func(_ context.Context, id uuid.UUID, token string) error {
				assert.Equal(t, userID, id)
				got = token
				return nil
			},
		}
		srv := newTestServer(t, content, nil, nil)

		c, rec := newAuthedContext(srv, http.MethodPost, "/api/me/push-token", `{"pushToken":"fcm-123"}`, userID)
		require.NoError(t, callHandler(srv.handleSetPushToken, c))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "fcm-123", got)
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		content := &mockContent{
			setPushTokenFn: func(context.Context, uuid.UUID, string) error {
				return domain.ErrInvalidPushToken
			},
		}
		srv := newTestServer(t, content, nil, nil)

		c, rec := newAuthedContext(srv, http.MethodPost, "/api/me/push-token", `{"pushToken":""}`, userID)
		require.NoError(t, callHandler(srv.handleSetPushToken, c))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "push token is required")
	})
}
