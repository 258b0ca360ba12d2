package eventpublisher

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/NirdeshGothania/stackit/internal/domain"
)

type dispatcherFunc func(ctx context.Context, n *domain.Notification) error

func (f dispatcherFunc) DispatchPush(ctx context.Context, n *domain.Notification) error {
	return f(ctx, n)
}

func TestEventPublisher_FansOutToEveryTransport(t *testing.T) {
	var calls []string
	record := func(name string, err error) domain.PushDispatcher {
		return dispatcherFunc(func(context.Context, *domain.Notification) error {
			calls = append(calls, name)
			return err
		})
	}

	boom := errors.New("relay down")
	ep := New(
		Transport{Name: "websocket", Dispatcher: record("websocket", nil)},
		Transport{Name: "webhook", Dispatcher: record("webhook", boom)},
	)

	err := ep.DispatchPush(context.Background(), &domain.Notification{ID: uuid.New()})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "webhook")
	assert.Equal(t, []string{"websocket", "webhook"}, calls)
}

func TestEventPublisher_SkipsNilDispatchers(t *testing.T) {
	ep := New(Transport{Name: "webhook"})
	assert.True(t, ep.Empty())
	assert.NoError(t, ep.DispatchPush(context.Background(), &domain.Notification{}))
}
