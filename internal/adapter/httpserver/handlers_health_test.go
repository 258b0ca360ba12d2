package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func decodeReadiness(t *testing.T, rec *httptest.ResponseRecorder) readinessResponse {
	t.Helper()
	var resp readinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHandleStartup(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/startup", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv := newTestServer(t, nil, nil, nil,
		WithHealthChecks(
			HealthCheck{Name: "redis", Check: healthOK},
			HealthCheck{Name: "postgres", Check: healthOK},
		),
	)

	require.NoError(t, srv.handleStartup(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeReadiness(t, rec)
	assert.Equal(t, "ready", resp.Status)
	assert.Equal(t, "postgres", resp.Store)
	assert.Equal(t, "up", resp.Checks["redis"].Status)
	assert.Equal(t, "up", resp.Checks["postgres"].Status)
	assert.Empty(t, resp.FailedChecks)
}

func TestHandleStartup_RedisDown(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/startup", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv := newTestServer(t, nil, nil, nil,
		WithHealthChecks(
			HealthCheck{Name: "redis", Check: healthErr("connection refused")},
			HealthCheck{Name: "postgres", Check: healthOK},
		),
	)

	require.NoError(t, srv.handleStartup(c))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeReadiness(t, rec)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, []string{"redis"}, resp.FailedChecks)
}

func TestHandleLiveness(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv := newTestServer(t, nil, nil, nil)
	require.NoError(t, srv.handleLiveness(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"uptime"`)
}

func TestHandleReadiness_MemoryBackendWithoutChecks(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	cfg := testConfig()
	cfg.StoreBackend = "memory"
	srv := NewServer(cfg, &mockContent{}, &mockEngine{}, &mockInbox{})

	require.NoError(t, srv.handleReadiness(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","store":"memory","checks":{}}`, rec.Body.String())
}

func TestHandleReadiness_ReportsEveryDependency(t *testing.T) {
	tests := []struct {
		name       string
		redis      func(context.Context) error
		postgres   func(context.Context) error
		wantCode   int
		wantFailed []string
	}{
		{"all healthy", healthOK, healthOK, http.StatusOK, nil},
		{"redis down", healthErr("connection refused"), healthOK, http.StatusServiceUnavailable, []string{"redis"}},
		{"postgres down", healthOK, healthErr("database unreachable"), http.StatusServiceUnavailable, []string{"postgres"}},
		{"both down", healthErr("connection refused"), healthErr("database unreachable"), http.StatusServiceUnavailable, []string{"redis", "postgres"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

			srv := newTestServer(t, nil, nil, nil,
				WithHealthChecks(
					HealthCheck{Name: "redis", Check: tt.redis},
					HealthCheck{Name: "postgres", Check: tt.postgres},
				),
			)
			require.NoError(t, srv.handleReadiness(c))

			assert.Equal(t, tt.wantCode, rec.Code)
			resp := decodeReadiness(t, rec)
			assert.Equal(t, "postgres", resp.Store)
			assert.Equal(t, tt.wantFailed, resp.FailedChecks)
			require.Len(t, resp.Checks, 2, "a failure does not hide the other dependency")
			for _, name := range tt.wantFailed {
				assert.Equal(t, "down", resp.Checks[name].Status)
				assert.NotEmpty(t, resp.Checks[name].Error)
			}
		})
	}
}

func TestHandleReadiness_RunsEveryCheck(t *testing.T) {
	var calls atomic.Int32
	count := func(context.Context) error {
		calls.Add(1)
		return errors.New("down")
	}
	srv := newTestServer(t, nil, nil, nil, WithHealthChecks(
		HealthCheck{Name: "postgres", Check: count},
		HealthCheck{Name: "redis", Check: count},
	))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), httptest.NewRecorder())
	require.NoError(t, srv.handleReadiness(c))

	assert.Equal(t, int32(2), calls.Load())
}

func TestHandleVersion(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv := newTestServer(t, nil, nil, nil)
	require.NoError(t, srv.handleVersion(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"version"`)
	assert.Contains(t, body, `"commit"`)
	assert.Contains(t, body, `"build_time"`)
	assert.Contains(t, body, `"go_version"`)
}

func TestHealthRoutesAreUnauthenticated(t *testing.T) {
	srv := newTestServer(t, nil, nil, nil, WithHealthChecks(HealthCheck{Name: "postgres", Check: healthOK}))

	for _, path := range []string{"/health/startup", "/health/live", "/health/ready", "/version"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
