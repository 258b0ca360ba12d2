package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/NirdeshGothania/stackit/internal/adapter/eventpublisher"
	"github.com/NirdeshGothania/stackit/internal/adapter/httpserver"
	"github.com/NirdeshGothania/stackit/internal/adapter/memory"
	"github.com/NirdeshGothania/stackit/internal/adapter/metrics"
	"github.com/NirdeshGothania/stackit/internal/adapter/postgres"
	"github.com/NirdeshGothania/stackit/internal/adapter/push"
	"github.com/NirdeshGothania/stackit/internal/adapter/redis"
	"github.com/NirdeshGothania/stackit/internal/adapter/websocket"
	"github.com/NirdeshGothania/stackit/internal/app"
	"github.com/NirdeshGothania/stackit/internal/domain"
	"github.com/NirdeshGothania/stackit/internal/platform/config"
	"github.com/NirdeshGothania/stackit/internal/platform/logging"
	"github.com/NirdeshGothania/stackit/internal/platform/tracing"
	"github.com/NirdeshGothania/stackit/internal/platform/version"
)

const (
	leaderLeaseKey = "stackit:reconciler:leader"
	leaderLeaseTTL = time.Minute
	shutdownWait   = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, dbMetrics *metrics.DatabaseMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(dbMetrics))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config, redisMetrics *metrics.RedisMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, redisMetrics)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupNode(cfg *config.Config, wsMetrics *metrics.WebSocketMetrics) *centrifuge.Node {
	node, err := websocket.NewNode(wsMetrics, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create centrifuge node", "error", err)
		os.Exit(1)
	}

	if cfg.RedisURL != "" {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("Failed to parse Redis URL for centrifuge", "error", err)
			os.Exit(1)
		}
		if err := websocket.SetupRedis(node, opts.Addr); err != nil {
			slog.Error("Failed to set up centrifuge Redis broker", "error", err)
			os.Exit(1)
		}
	}

	if err := node.Run(); err != nil {
		slog.Error("Failed to run centrifuge node", "error", err)
		os.Exit(1)
	}
	return node
}

func newLeaseHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

func runGracefulShutdown(srv *httpserver.Server, reconciler *app.LedgerReconciler, notifier *app.Notifier, node *centrifuge.Node, tp *tracing.Provider) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		reconciler.Stop()
		notifier.Wait()

		if err := node.Shutdown(shutdownCtx); err != nil {
			slog.Error("Centrifuge shutdown error", "error", err)
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.Error("Tracer shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", append([]any{"env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreBackend}, version.Get().Attrs()...)...)

	tp, err := tracing.Setup(context.Background(), cfg.OTLPEndpoint, cfg.OTLPHeaders, version.Version)
	if err != nil {
		slog.Error("Failed to set up tracing", "error", err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	engineMetrics := metrics.NewEngineMetrics(reg)

	var (
		store        domain.Ledger
		healthChecks []httpserver.HealthCheck
	)
	switch cfg.StoreBackend {
	case config.BackendMemory:
		slog.Warn("Using in-memory store, data is lost on restart")
		store = memory.NewStore()
	default:
		dbMetrics := metrics.NewDatabaseMetrics(reg)
		pool := setupDB(cfg, dbMetrics)
		defer pool.Close()
		store = postgres.NewStore(pool, postgres.WithMetrics(dbMetrics))
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	}

	notifierOpts := []app.NotifierOption{app.WithNotifierMetrics(engineMetrics)}
	serverOpts := []httpserver.Option{}
	var lease domain.LeaderLease

	if cfg.RedisURL != "" {
		redisClient := setupRedis(cfg, metrics.NewRedisMetrics(reg))
		defer func() { _ = redisClient.Close() }()

		unread := redis.NewUnreadCountCache(redisClient, cfg.UnreadCacheTTL, metrics.NewCacheMetrics(reg))
		notifierOpts = append(notifierOpts, app.WithUnreadCache(unread))

		idem := redis.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
		serverOpts = append(serverOpts, httpserver.WithIdempotency(idem, metrics.NewIdempotencyMetrics(reg)))

		lease = redis.NewLeaderLease(redisClient, leaderLeaseKey, newLeaseHolder(), leaderLeaseTTL)
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	wsMetrics := metrics.NewWebSocketMetrics(reg)
	node := setupNode(cfg, wsMetrics)

	transports := []eventpublisher.Transport{{Name: "websocket", Dispatcher: websocket.NewPublisher(node, wsMetrics)}}
	if cfg.PushWebhookURL != "" {
		webhook := push.NewWebhookDispatcher(cfg.PushWebhookURL, store, &http.Client{Timeout: cfg.PushTimeout}, metrics.NewPushMetrics(reg))
		transports = append(transports, eventpublisher.Transport{Name: "webhook", Dispatcher: webhook})
	}
	notifierOpts = append(notifierOpts, app.WithPush(eventpublisher.New(transports...), cfg.PushTimeout))

	notifier := app.NewNotifier(store, clock, notifierOpts...)
	engine := app.NewEngine(store, notifier, clock,
		app.WithRetryPolicy(cfg.VoteMaxAttempts, cfg.VoteRetryBackoff),
		app.WithEngineMetrics(engineMetrics),
	)
	service := app.NewService(store, notifier, clock)

	reconciler := app.NewLedgerReconciler(app.NewAuditor(store, engineMetrics), lease, cfg.ReconcileInterval, cfg.ReconcileRepair, clock)
	go reconciler.Start(context.Background())

	wsHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.AppURL, nil, !cfg.IsProduction(), wsMetrics),
	})
	serverOpts = append(serverOpts,
		httpserver.WithWebsocket(wsHandler),
		httpserver.WithMetrics(metrics.NewHTTPMetrics(reg), metrics.Handler(reg)),
		httpserver.WithHealthChecks(healthChecks...),
	)

	srv := httpserver.NewServer(cfg, service, engine, notifier, serverOpts...)

	done := runGracefulShutdown(srv, reconciler, notifier, node, tp)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
