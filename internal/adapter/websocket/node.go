package websocket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"

	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
)

const channelPrefix = "notifications:"

// Channel is the personal channel a user's live notifications are published on.
func Channel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

// NewNode creates the centrifuge node. Connections must carry credentials whose UserID is the
// stackit user id; the node subscribes them server-side to their own channel and refuses
// client-side subscriptions.
func NewNode(wsMetrics *metrics.WebSocketMetrics, logLevel string) (*centrifuge.Node, error) {
	conf := centrifuge.Config{LogLevel: parseCentrifugeLogLevel(logLevel), LogHandler: slogHandler}
	node, err := centrifuge.New(conf)
	if err != nil {
		return nil, fmt.Errorf("create centrifuge node: %w", err)
	}

	node.OnConnecting(onConnecting(wsMetrics))
	node.OnConnect(onConnect(wsMetrics))

	return node, nil
}

func onConnecting(wsMetrics *metrics.WebSocketMetrics) func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
	reject := func(reason string) (centrifuge.ConnectReply, error) {
		if wsMetrics != nil {
			wsMetrics.RejectedConnections.WithLabelValues(reason).Inc()
		}
		return centrifuge.ConnectReply{}, centrifuge.DisconnectInvalidToken
	}

	return func(ctx context.Context, e centrifuge.ConnectEvent) (centrifuge.ConnectReply, error) {
		cred, ok := centrifuge.GetCredentials(ctx)
		if !ok || cred.UserID == "" {
			return reject("no_credentials")
		}

		userID, err := uuid.Parse(cred.UserID)
		if err != nil {
			slog.Warn("Invalid websocket user ID", "user_id", cred.UserID, "error", err)
			return reject("invalid_user")
		}

		return centrifuge.ConnectReply{
			Subscriptions: map[string]centrifuge.SubscribeOptions{
				Channel(userID): {},
			},
		}, nil
	}
}

func onConnect(wsMetrics *metrics.WebSocketMetrics) func(client *centrifuge.Client) {
	return func(client *centrifuge.Client) {
		slog.Debug("Client connected", "client_id", client.ID(), "user_id", client.UserID())

		if wsMetrics != nil {
			wsMetrics.ActiveConnections.Inc()
		}

		client.OnSubscribe(func(e centrifuge.SubscribeEvent, cb centrifuge.SubscribeCallback) {
			cb(centrifuge.SubscribeReply{}, centrifuge.ErrorPermissionDenied)
		})

		client.OnDisconnect(func(e centrifuge.DisconnectEvent) {
			slog.Debug("Client disconnected", "client_id", client.ID(), "reason", e.Reason)
			if wsMetrics != nil {
				wsMetrics.ActiveConnections.Dec()
			}
		})
	}
}

// SetupRedis switches the node to a Redis broker so publishes reach clients connected to any
// instance.
func SetupRedis(node *centrifuge.Node, redisAddr string) error {
	shard, err := centrifuge.NewRedisShard(node, centrifuge.RedisShardConfig{Address: redisAddr})
	if err != nil {
		return fmt.Errorf("create redis shard: %w", err)
	}

	broker, err := centrifuge.NewRedisBroker(node, centrifuge.RedisBrokerConfig{Prefix: "stackit", Shards: []*centrifuge.RedisShard{shard}})
	if err != nil {
		return fmt.Errorf("create redis broker: %w", err)
	}
	node.SetBroker(broker)

	return nil
}

func slogHandler(entry centrifuge.LogEntry) {
	attrs := make([]any, 0, len(entry.Fields)*2)
	for k, v := range entry.Fields {
		attrs = append(attrs, k, v)
	}
	switch entry.Level {
	case centrifuge.LogLevelDebug, centrifuge.LogLevelTrace:
		slog.Debug(entry.Message, attrs...)
	case centrifuge.LogLevelInfo:
		slog.Info(entry.Message, attrs...)
	case centrifuge.LogLevelWarn:
		slog.Warn(entry.Message, attrs...)
	case centrifuge.LogLevelError:
		slog.Error(entry.Message, attrs...)
	case centrifuge.LogLevelNone:
		// EMPTY
	}
}

func parseCentrifugeLogLevel(level string) centrifuge.LogLevel {
	switch level {
	case "debug":
		return centrifuge.LogLevelDebug
	case "warn":
		return centrifuge.LogLevelWarn
	case "error":
		return centrifuge.LogLevelError
	default:
		return centrifuge.LogLevelInfo
	}
}
