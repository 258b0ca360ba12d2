// Package push delivers notifications to a device-push relay over HTTP.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
	"github.com/NirdeshGothania/stackit/internal/domain"
)

const transportWebhook = "webhook"

// TokenSource resolves a recipient's device push token.
type TokenSource interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type webhookPayload struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

// WebhookDispatcher posts each notification to a push relay. Recipients without a push token
// are skipped. A circuit breaker stops calls to a failing relay.
type WebhookDispatcher struct {
	url     string
	client  *http.Client
	users   TokenSource
	cb      *gobreaker.CircuitBreaker
	metrics *metrics.PushMetrics
}

var _ domain.PushDispatcher = (*WebhookDispatcher)(nil)

// NewWebhookDispatcher creates the dispatcher. m may be nil.
func NewWebhookDispatcher(url string, users TokenSource, client *http.Client, m *metrics.PushMetrics) *WebhookDispatcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	d := &WebhookDispatcher{url: url, client: client, users: users, metrics: m}
	d.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "push-webhook",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("Circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			if m != nil {
				m.BreakerState.Set(stateToFloat(to))
			}
		},
	})
	return d
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (d *WebhookDispatcher) DispatchPush(ctx context.Context, n *domain.Notification) error {
	user, err := d.users.GetUser(ctx, n.ToUserID)
	if err != nil {
		d.record("error")
		return fmt.Errorf("%w: resolve push token: %v", domain.ErrDeliveryFailure, err)
	}
	if user.PushToken == "" {
		d.record("skipped")
		return nil
	}

	answerID := ""
	if n.AnswerID != nil {
		answerID = n.AnswerID.String()
	}
	body, err := json.Marshal(webhookPayload{
		Token: user.PushToken,
		Title: "New Notification",
		Body:  n.Content,
		Data: map[string]string{
			"type":       string(n.Kind),
			"questionId": n.QuestionID.String(),
			"answerId":   answerID,
		},
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	_, err = d.cb.Execute(func() (any, error) {
		return nil, d.post(ctx, body)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		d.record("rejected")
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	case err != nil:
		d.record("error")
		return fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
	}
	d.record("delivered")
	return nil
}

func (d *WebhookDispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send push request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("push relay returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *WebhookDispatcher) record(result string) {
	if d.metrics != nil {
		d.metrics.Deliveries.WithLabelValues(transportWebhook, result).Inc()
	}
}

// State returns the current breaker state.
func (d *WebhookDispatcher) State() gobreaker.State {
	return d.cb.State()
}
