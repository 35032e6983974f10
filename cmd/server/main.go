package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/httpserver"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/notifier"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/postgres"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/redis"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/twitch"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/websocket"
	"github.com/EvntBoard/plugin-twitch/internal/app"
	"github.com/EvntBoard/plugin-twitch/internal/bridge"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/config"
	"github.com/EvntBoard/plugin-twitch/internal/platform/logging"
	"github.com/EvntBoard/plugin-twitch/internal/platform/version"
	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

const (
	shutdownTimeout = 10 * time.Second
	connectTimeout  = 10 * time.Second
)

type recorders struct {
	http      *metrics.HTTPMetrics
	lifecycle *metrics.LifecycleMetrics
	bridge    *metrics.BridgeMetrics
	notifier  *metrics.NotifierMetrics
	commands  *metrics.CommandMetrics
	websocket *metrics.WebSocketMetrics
	breaker   *metrics.CircuitBreakerMetrics
	database  *metrics.DatabaseMetrics
}

func newRecorders(reg prometheus.Registerer) recorders {
	return recorders{
		http:      metrics.NewHTTPMetrics(reg),
		lifecycle: metrics.NewLifecycleMetrics(reg),
		bridge:    metrics.NewBridgeMetrics(reg),
		notifier:  metrics.NewNotifierMetrics(reg),
		commands:  metrics.NewCommandMetrics(reg),
		websocket: metrics.NewWebSocketMetrics(reg),
		breaker:   metrics.NewCircuitBreakerMetrics(reg),
		database:  metrics.NewDatabaseMetrics(reg),
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config, m *metrics.DatabaseMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, m)
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

func setupRedis(cfg *config.Config, m *metrics.CircuitBreakerMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupNode(cfg *config.Config, m *metrics.WebSocketMetrics) *centrifuge.Node {
	node, err := websocket.NewNode(m, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create centrifuge node", "error", err)
		os.Exit(1)
	}

	if cfg.RedisURL != "" {
		if err := websocket.SetupRedis(node, cfg.RedisURL); err != nil {
			slog.Error("Failed to set up centrifuge redis broker", "error", err)
			os.Exit(1)
		}
	}

	if err := node.Run(); err != nil {
		slog.Error("Failed to start centrifuge node", "error", err)
		os.Exit(1)
	}
	return node
}

// autoInit opens a session with the credentials from the environment. A
// failure is logged; the host can still call /api/session/init later.
func autoInit(ctx context.Context, cfg *config.Config, manager *app.Manager) {
	creds := domain.Credentials{ClientID: cfg.TwitchClientID, AccessToken: cfg.TwitchAccessToken}
	if err := manager.Init(ctx, creds); err != nil {
		slog.Error("Failed to initialise session from environment", "error", err)
		return
	}
	slog.Info("Session initialised from environment", "state", manager.State().String())
}

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

func runGracefulShutdown(srv *httpserver.Server, manager *app.Manager, closers []closer) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		manager.Unload(ctx)

		for _, c := range closers {
			if err := c.fn(ctx); err != nil {
				slog.Error("Shutdown step failed", "step", c.name, "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	info := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	reg := metrics.NewRegistry()
	rec := newRecorders(reg)

	node := setupNode(cfg, rec.websocket)
	sinks := []domain.Sink{
		websocket.NewPublisher(node, websocket.History{Size: cfg.WSHistorySize, TTL: cfg.WSHistoryTTL}, rec.websocket),
	}

	var healthChecks []httpserver.HealthCheck
	var closers []closer

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		redisClient = setupRedis(cfg, rec.breaker)
		sinks = append(sinks, redis.NewPublisher(redisClient, cfg.RedisChannel))
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: redis.Ping(redisClient)})
	}

	var (
		journal       *postgres.JournalRepo
		pool          *pgxpool.Pool
		pruneCtx      context.Context
		stopPruner    context.CancelFunc
		prunerRunning sync.WaitGroup
	)
	if cfg.DatabaseURL != "" {
		pool = setupDB(cfg, rec.database)
		journal = postgres.NewJournalRepo(pool)
		sinks = append(sinks, postgres.NewJournalSink(journal))
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: postgres.Ping(pool)})

		pruneCtx, stopPruner = context.WithCancel(context.Background())
		pruner := postgres.NewPruner(journal, cfg.JournalRetention, clock, rec.database)
		prunerRunning.Go(func() { pruner.Run(pruneCtx) })
	}

	n := notifier.New(sinks, notifier.Options{
		Namespace:      cfg.EventNamespace,
		QueueSize:      cfg.NotifyQueueSize,
		EnqueueTimeout: cfg.NotifyEnqueueTimeout,
	}, clock, rec.notifier)

	connector := twitch.NewConnector(twitch.ConnectorOptions{
		EventSubURL: cfg.EventSubWebSocketURL,
		Clock:       clock,
	})
	manager := app.NewManager(connector, bridge.New(n, clock, rec.bridge), clock, app.Options{
		ConnectTimeout:        cfg.ChatConnectTimeout,
		ChatMessagesPerWindow: cfg.ChatMessagesPerWindow,
		ChatRateWindow:        cfg.ChatRateWindow,
	}, rec.lifecycle, rec.commands)
	gateway := app.NewGateway(manager, rec.commands)

	deps := httpserver.Deps{
		Lifecycle: manager,
		Commands:  gateway,
		Listeners: websocket.NewListeners(node),
		WebsocketHandler: centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
			CheckOrigin: websocket.NewCheckOrigin(cfg.AllowedOrigins(), cfg.AppEnv == "development"),
		}),
		MetricsHandler: metrics.Handler(reg),
		HTTPMetrics:    rec.http,
		HealthChecks:   healthChecks,
	}
	// Leave Journal as a nil interface when no database is configured.
	if journal != nil {
		deps.Journal = journal
	}
	srv := httpserver.NewServer(cfg, deps)

	closers = append(closers,
		closer{"notifier", n.Close},
		closer{"centrifuge", node.Shutdown},
	)
	if stopPruner != nil {
		closers = append(closers, closer{"journal pruner", func(context.Context) error {
			stopPruner()
			prunerRunning.Wait()
			return nil
		}})
	}
	if pool != nil {
		closers = append(closers, closer{"postgres", func(context.Context) error {
			pool.Close()
			return nil
		}})
	}
	if redisClient != nil {
		closers = append(closers, closer{"redis", func(context.Context) error {
			return redisClient.Close()
		}})
	}

	done := runGracefulShutdown(srv, manager, closers)

	if cfg.HasStartupCredentials() {
		go autoInit(context.Background(), cfg, manager)
	}

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
