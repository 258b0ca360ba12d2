package httpserver

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const rateLimiterExpiry = 5 * time.Minute

// limiterKey picks the bucket a request draws from.
type limiterKey func(c echo.Context) string

// byClientIP keys routes that run before a session exists, such as sign-in.
func byClientIP(c echo.Context) string {
	return "ip:" + c.RealIP()
}

// bySessionUser keys authenticated writes by user, so people sharing an address
// (office NAT, mobile carrier) keep separate budgets. Unauthenticated requests
// fall back to their address.
func bySessionUser(c echo.Context) string {
	if id := currentUserID(c); id != uuid.Nil {
		return "user:" + id.String()
	}
	return byClientIP(c)
}

// newRateLimiter builds a token bucket limiter named for metrics and logs.
func (s *Server) newRateLimiter(name string, ratePerSecond float64, burst int, key limiterKey) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: rateLimiterExpiry,
	})
	retryAfter := strconv.Itoa(int(math.Ceil(1 / ratePerSecond)))

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return key(c), nil
		},
		Store: store,
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			s.httpMetrics.RateLimitHit(name)
			slog.WarnContext(c.Request().Context(), "Rate limit exceeded", "limiter", name, "key", identifier, "route", c.Path())
			c.Response().Header().Set("Retry-After", retryAfter)
			return c.JSON(http.StatusTooManyRequests, map[string]string{
				"error":   "rate limit exceeded",
				"limiter": name,
			})
		},
	})
}
