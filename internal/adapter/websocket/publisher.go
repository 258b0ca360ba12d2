package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
	"github.com/NirdeshGothania/stackit/internal/domain"
)

type notificationMessage struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	FromUserID uuid.UUID  `json:"fromUserId"`
	QuestionID uuid.UUID  `json:"questionId"`
	AnswerID   *uuid.UUID `json:"answerId,omitempty"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Publisher pushes persisted notifications to the recipient's live channel.
type Publisher struct {
	node      *centrifuge.Node
	wsMetrics *metrics.WebSocketMetrics
}

var _ domain.PushDispatcher = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node, wsMetrics *metrics.WebSocketMetrics) *Publisher {
	return &Publisher{node: node, wsMetrics: wsMetrics}
}

func (p *Publisher) DispatchPush(_ context.Context, n *domain.Notification) error {
	data, err := json.Marshal(notificationMessage{
		ID:         n.ID,
		Kind:       string(n.Kind),
		FromUserID: n.FromUserID,
		QuestionID: n.QuestionID,
		AnswerID:   n.AnswerID,
		Content:    n.Content,
		CreatedAt:  n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	channel := Channel(n.ToUserID)
	if _, err := p.node.Publish(channel, data); err != nil {
		return fmt.Errorf("%w: publish to channel %s: %v", domain.ErrDeliveryFailure, channel, err)
	}

	if p.wsMetrics != nil {
		p.wsMetrics.MessagesPublished.Inc()
	}
	return nil
}
