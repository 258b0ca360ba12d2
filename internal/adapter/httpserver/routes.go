package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const (
	authRatePerSecond  = 1
	authBurst          = 5
	writeRatePerSecond = 5
	writeBurst         = 20
)

func (s *Server) registerRoutes() {
	s.echo.Use(correlationMiddleware)
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	if s.httpMetrics != nil {
		s.echo.Use(s.httpMetrics.Middleware())
	}
	s.echo.Use(ErrorHandlingMiddleware())
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            63072000, // 2 years; only sent over HTTPS
		HSTSPreloadEnabled:    true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	csrfMiddleware := s.setupCSRFMiddleware()
	writeLimiter := s.newRateLimiter("write", writeRatePerSecond, writeBurst, bySessionUser)

	s.registerHealthRoutes()
	s.registerAuthRoutes(csrfMiddleware, s.newRateLimiter("auth", authRatePerSecond, authBurst, byClientIP))

	api := s.echo.Group("/api", s.requireAuth, csrfMiddleware)
	api.GET("/me", s.handleMe)
	api.POST("/me/last-seen", s.handleTouchLastSeen, writeLimiter)
	api.POST("/me/push-token", s.handleSetPushToken, writeLimiter)
	s.registerUserRoutes(api)
	s.registerQuestionRoutes(api, writeLimiter)
	s.registerAnswerRoutes(api, writeLimiter)
	s.registerNotificationRoutes(api, writeLimiter)

	if s.websocketHandler != nil {
		s.echo.GET("/connection/websocket", s.handleWebsocket)
	}
	if s.metricsHandler != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metricsHandler))
	}
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "Request", attrs...)
			return nil
		},
	})
}

// The token cookie is readable by the browser client, which echoes it back in X-CSRF-Token.
func (s *Server) setupCSRFMiddleware() echo.MiddlewareFunc {
	maxAge := int(s.config.SessionMaxAge.Seconds())

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token",
		CookieName:     csrfCookieName,
		CookiePath:     "/",
		CookieMaxAge:   maxAge,
		CookieSecure:   s.config.IsProduction(),
		CookieSameSite: http.SameSiteStrictMode,
	})
}
