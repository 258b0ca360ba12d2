package domain

import "context"

var ErrRequestInFlight = newError("a request with this idempotency key is still in flight", ErrConflict)

// StoredResponse is a completed response replayed for a repeated idempotency key.
type StoredResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// IdempotencyStore records the first response per (scope, key).
// Begin returns a stored response when the key has completed, ErrRequestInFlight when another
// request holds the key, and (nil, nil) when the caller now owns the key.
type IdempotencyStore interface {
	Begin(ctx context.Context, scope, key string) (*StoredResponse, error)
	Complete(ctx context.Context, scope, key string, resp StoredResponse) error
	Abandon(ctx context.Context, scope, key string) error
}
