package eventpublisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

// Transport is one named push transport.
type Transport struct {
	Name       string
	Dispatcher domain.PushDispatcher
}

// EventPublisher implements domain.PushDispatcher by handing each notification to every
// configured transport. One failing transport does not stop the others.
type EventPublisher struct {
	transports []Transport
}

var _ domain.PushDispatcher = (*EventPublisher)(nil)

func New(transports ...Transport) *EventPublisher {
	var kept []Transport
	for _, t := range transports {
		if t.Dispatcher != nil {
			kept = append(kept, t)
		}
	}
	return &EventPublisher{transports: kept}
}

func (ep *EventPublisher) DispatchPush(ctx context.Context, n *domain.Notification) error {
	var errs []error
	for _, t := range ep.transports {
		if err := t.Dispatcher.DispatchPush(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Empty reports whether no transport is configured.
func (ep *EventPublisher) Empty() bool {
	return len(ep.transports) == 0
}
