package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
)

// NewCheckOrigin returns a CheckOrigin function for the Centrifuge WebSocket handler.
// Empty origins (non-browser clients) and the origins of appURL and extraOrigins are allowed;
// localhost is allowed in development only. wsMetrics may be nil.
func NewCheckOrigin(appURL string, extraOrigins []string, isDevelopment bool, wsMetrics *metrics.WebSocketMetrics) func(r *http.Request) bool {
	allowed := []string{extractOrigin(appURL)}
	for _, o := range extraOrigins {
		if origin := extractOrigin(o); origin != "" {
			allowed = append(allowed, origin)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		switch {
		case origin == "":
			return true
		case slices.Contains(allowed, origin):
			return true
		case isDevelopment && isLocalhostOrigin(origin):
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		if wsMetrics != nil {
			wsMetrics.RejectedConnections.WithLabelValues("origin").Inc()
		}
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
