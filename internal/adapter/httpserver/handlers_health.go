package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/NirdeshGothania/stackit/internal/platform/version"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named dependency check, e.g. a postgres ping or redis ping.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkResult struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// readinessResponse tells operators which store backend is serving and how each
// dependency answered. FailedChecks keeps registration order.
type readinessResponse struct {
	Status       string                 `json:"status"`
	Store        string                 `json:"store"`
	Checks       map[string]checkResult `json:"checks"`
	FailedChecks []string               `json:"failed_checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.respondReadiness(c, s.runHealthChecks(ctx))
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.respondReadiness(c, s.runHealthChecks(ctx))
}

// runHealthChecks runs every check concurrently and reports all of them; one
// failing dependency does not hide the state of the others.
func (s *Server) runHealthChecks(ctx context.Context) readinessResponse {
	results := make([]checkResult, len(s.healthChecks))

	var g errgroup.Group
	for i, hc := range s.healthChecks {
		g.Go(func() error {
			start := time.Now()
			err := hc.Check(ctx)
			results[i] = checkResult{Status: "up", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Status = "down"
				results[i].Error = err.Error()
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := readinessResponse{
		Status: "ready",
		Store:  s.config.StoreBackend,
		Checks: make(map[string]checkResult, len(results)),
	}
	for i, hc := range s.healthChecks {
		resp.Checks[hc.Name] = results[i]
		if results[i].Status != "up" {
			resp.FailedChecks = append(resp.FailedChecks, hc.Name)
		}
	}
	if len(resp.FailedChecks) > 0 {
		resp.Status = "unhealthy"
		slog.WarnContext(ctx, "Health check failed", "store", resp.Store, "failed", resp.FailedChecks)
	}
	return resp
}

func (s *Server) respondReadiness(c echo.Context, resp readinessResponse) error {
	code := http.StatusOK
	if resp.Status != "ready" {
		code = http.StatusServiceUnavailable
	}
	if err := c.JSON(code, resp); err != nil {
		return fmt.Errorf("failed to send readiness response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
