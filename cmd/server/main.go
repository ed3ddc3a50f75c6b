package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/matricula/internal/api"
	"github.com/JonMunkholm/matricula/internal/audit"
	"github.com/JonMunkholm/matricula/internal/config"
	"github.com/JonMunkholm/matricula/internal/logging"
	"github.com/JonMunkholm/matricula/internal/metrics"
	"github.com/JonMunkholm/matricula/internal/session"
	"github.com/JonMunkholm/matricula/internal/submission"
	"github.com/JonMunkholm/matricula/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"api_base_url", cfg.API.BaseURL,
		"session_backend", cfg.Session.Backend,
		"audit_database", cfg.Database.URL != "",
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()
	var health []web.HealthCheck

	// Session store
	var sessions session.Store
	if cfg.UsesRedis() {
		client, err := session.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
			os.Exit(1)
		}
		defer client.Close()

		store := session.NewRedisStore(client)
		sessions = store
		health = append(health, web.HealthCheck{Name: "redis", Check: store.Health})
		slog.Info("session store ready", "backend", "redis", "addr", cfg.Redis.Addr)
	} else {
		sessions = session.NewMemoryStore()
		slog.Info("session store ready", "backend", "memory")
	}

	// Audit trail: Postgres when configured, otherwise a bounded in-memory log
	var recorder audit.Recorder
	if cfg.Database.URL != "" {
		pool, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pg := audit.NewPostgresRecorder(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate audit schema", "error", err)
			os.Exit(1)
		}
		recorder = pg
		health = append(health, web.HealthCheck{Name: "postgres", Check: pool.Ping})
	} else {
		recorder = audit.NewMemoryRecorder(cfg.Audit.MemoryCapacity)
		slog.Info("audit trail kept in memory", "capacity", cfg.Audit.MemoryCapacity)
	}

	var m *metrics.Metrics
	var apiOpts []api.Option
	if cfg.Metrics.Enabled {
		m = metrics.New()
		apiOpts = append(apiOpts, api.WithObserver(m.ObserveAPI))
	}

	client, err := api.New(cfg.API.BaseURL, cfg.API.Timeout, apiOpts...)
	if err != nil {
		slog.Error("failed to create api client", "error", err)
		os.Exit(1)
	}

	guard := submission.NewInFlight()
	server := web.NewServer(cfg, web.Deps{
		API:      client,
		Sessions: sessions,
		Audit:    recorder,
		Metrics:  m,
		Guard:    guard,
		Health:   health,
	})

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())

	go audit.StartRetentionScheduler(jobCtx, recorder, audit.RetentionConfig{
		RetentionDays: cfg.Audit.RetentionDays,
		CheckInterval: cfg.Audit.CheckInterval,
	})
	go server.RunSweeper(jobCtx)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for submissions already sent to the API
		if active := guard.ActiveCount(); active > 0 {
			slog.Info("waiting for submissions to complete", "active", active)
			if err := guard.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("submissions did not complete in time", "error", err)
			} else {
				slog.Info("all submissions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		os.Exit(1)
	}
	<-done
}

// connectDatabase opens and verifies the audit database pool.
func connectDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
