package main

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/propslab/props"
	"github.com/propslab/props/chain"
	"github.com/propslab/props/pkg/logger"
	"github.com/propslab/props/pkg/pgxdb"
	"github.com/propslab/props/pkg/stacks"
	"github.com/propslab/props/web/cache"
	"github.com/propslab/props/web/config"
	"github.com/propslab/props/web/handler"
	"github.com/propslab/props/web/store/pgxstore"
)

var (
	version = "dev"
	date    = "unknown"
)

func main() {
	// Load .env if present, real environment wins
	_ = godotenv.Load()

	// Load configuration
	cfg := config.New()

	// Initialize logger and set as default
	log := logger.NewFromConfig(logger.Config{
		LogLevel:         cfg.LogLevel,
		LogHumanFriendly: cfg.LogHumanFriendly,
	})
	slog.SetDefault(log)

	// Prepare context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.InfoContext(ctx, "Props Web API Service starting",
		slog.String("version", version),
		slog.String("date", date),
	)

	// Chain access: read-only contract calls through the configured node
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	client := stacks.NewClient(httpClient, cfg.NodeURL)
	reader := chain.NewReader(client, cfg.Contract, cfg.Sender)

	aggregator := props.New(reader,
		props.WithLogger(log),
		props.WithRetries(int(cfg.Retries)),
		props.WithBaseDelay(cfg.BaseDelay),
		props.WithLeaderboardWindow(cfg.LeaderboardWindow),
		props.WithHistoryWindow(cfg.HistoryWindow),
		props.WithReceivedLimit(int(cfg.ReceivedLimit)),
		props.WithConcurrency(cfg.Concurrency),
	)

	// Report cache: shared redis when configured, in-process otherwise
	var reportCache cache.ReportCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
		reportCache = cache.NewRedis(redisClient, cfg.CacheTTL)
		log.InfoContext(ctx, "Using redis report cache", slog.String("addr", cfg.RedisAddr))
	} else {
		reportCache = cache.NewMemory()
		log.InfoContext(ctx, "Using in-process report cache")
	}
	provider := cache.NewCachedLeaderboard(reportCache, aggregator)

	mux := http.NewServeMux()

	// Optional snapshot archive
	sinks := []props.Sink{provider}
	if cfg.DatabaseURL != "" {
		db, err := pgxdb.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			log.ErrorContext(ctx, "Failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		if err := pgxdb.ApplyMigrations(db, cfg.MigrationsDir); err != nil {
			log.ErrorContext(ctx, "Failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}

		archive, archiveCloser := pgxstore.New(db)
		defer archiveCloser()

		sinks = append(sinks, archive)
		handler.NewPropsGetSnapshots(archive).AddRoutes(mux)
		log.InfoContext(ctx, "Snapshot archive enabled")
	}

	// Background refresh keeps the cached report warm
	refresher := props.NewRefresher(aggregator, props.MultiSink(sinks...),
		props.WithRefreshInterval(cfg.RefreshInterval),
	)
	events, refresherDone := refresher.Start(ctx)

	subscriberCloser := props.NewSubscriber(events,
		props.OnRefreshStarted(func(e props.RefreshStarted) {
			log.InfoContext(ctx, "Leaderboard refresh loop started")
		}),
		props.OnRefreshCompleted(func(e props.RefreshCompleted) {
			log.InfoContext(ctx, "Leaderboard refreshed",
				slog.Int("players", e.Players),
				slog.Duration("duration", e.Duration),
			)
		}),
		props.OnRefreshError(func(e props.RefreshError) {
			log.ErrorContext(ctx, "Leaderboard refresh failed", slog.Any("error", e.Err))
		}),
		props.OnRefreshShutdown(func(e props.RefreshShutdown) {
			log.InfoContext(ctx, "Leaderboard refresh loop stopped", slog.Any("reason", e.Reason))
		}),
	)
	defer subscriberCloser()

	// Register handlers
	handler.NewPropsGetLeaderboard(provider).AddRoutes(mux)
	handler.NewPropsGetHistory(aggregator).AddRoutes(mux)

	// Wrap with logging middleware
	loggedMux := logger.NewMiddleware(log)(mux)

	// Create server address
	addr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)

	server := &http.Server{
		Addr:    addr,
		Handler: loggedMux,
	}

	// Start server in a goroutine
	go func() {
		log.InfoContext(ctx, "Server started", slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.ErrorContext(ctx, "Server failed to start", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()

	log.InfoContext(ctx, "Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.ErrorContext(ctx, "Server forced to shutdown", slog.Any("error", err))
		os.Exit(1)
	}

	// Wait for the refresher to finish draining
	<-refresherDone

	log.InfoContext(ctx, "Server exited gracefully")
}
