// Copyright (c) 2026 Waitgate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/taibuivan/waitgate/internal/api"
	"github.com/taibuivan/waitgate/internal/notify"
	"github.com/taibuivan/waitgate/internal/platform/config"
	"github.com/taibuivan/waitgate/internal/platform/constants"
	"github.com/taibuivan/waitgate/internal/platform/metrics"
	"github.com/taibuivan/waitgate/internal/platform/migration"
	pgstore "github.com/taibuivan/waitgate/internal/platform/postgres"
	"github.com/taibuivan/waitgate/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/waitgate/internal/platform/redis"
	"github.com/taibuivan/waitgate/internal/platform/sec"
	"github.com/taibuivan/waitgate/internal/users/account"
	"github.com/taibuivan/waitgate/internal/users/auth"
	"github.com/taibuivan/waitgate/internal/waitlist"
)

func newServeCommand(application *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(command *cobra.Command, _ []string) error {
			return serve(command.Context(), application.log, application.cfg)
		},
	}
}

// # Backing Stores

// stores holds the connections opened in the second startup phase.
type stores struct {
	pool       *pgxpool.Pool
	redis      *goredis.Client
	identities auth.IdentityRepository
	entries    waitlist.Repository
	rateStore  ratelimit.Store
	checks     api.HealthDependencies
}

/*
openStores connects every backing store the configuration selects. Nothing
is served until all of them answer.

Parameters:
  - ctx: context.Context bounded by the startup timeout
  - cfg: *config.Config
  - log: *slog.Logger
  - clock: clockwork.Clock

Returns:
  - *stores: Connected stores; call close when done
  - error: Connection or migration failures
*/
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger, clock clockwork.Clock) (*stores, error) {
	opened := &stores{checks: api.HealthDependencies{}}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgstore.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		opened.pool = pool

		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			opened.close(log)
			return nil, err
		}

		opened.identities = auth.NewPostgresIdentityRepository(pool)
		opened.entries = waitlist.NewPostgresRepository(pool)
		opened.checks["postgres"] = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }
	default:
		log.Warn("memory_store_selected", slog.String("detail", "identities and waitlist entries are lost on restart"))
		opened.identities = auth.NewMemoryIdentityRepository(clock)
		opened.entries = waitlist.NewMemoryRepository()
	}

	switch cfg.RateLimitBackend {
	case config.BackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			opened.close(log)
			return nil, err
		}
		opened.redis = client
		opened.rateStore = ratelimit.NewRedisStore(client, clock)
		opened.checks["redis"] = func(ctx context.Context) error { return redisstore.Ping(ctx, client) }
	default:
		opened.rateStore = ratelimit.NewMemoryStore(clock, cfg.RateLimitMaxKeys)
	}

	return opened, nil
}

func (opened *stores) close(log *slog.Logger) {
	if opened.redis != nil {
		log.Info("closing_redis_client")
		if err := opened.redis.Close(); err != nil {
			log.Error("redis_close_failed", slog.Any("error", err))
		}
	}
	if opened.pool != nil {
		log.Info("closing_postgres_pool")
		opened.pool.Close()
	}
}

// # Serve

func serve(ctx context.Context, log *slog.Logger, cfg *config.Config) error {
	clock := clockwork.NewRealClock()

	// Phase 1: components that need no I/O.
	observer := metrics.New()

	codec, err := sec.NewTokenCodec(cfg.JWTSecret, constants.AuthIssuer, cfg.AccessTokenTTL, clock)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	passwords := sec.NewHashPool(sec.NewArgon2idHasher(cfg.HashParams()), cfg.HashWorkers, observer)
	verifications := sec.NewVerificationTokenManager(clock)

	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(log, cfg.VerifyBaseURL), cfg.NotifyRatePerSecond, cfg.NotifyBurst, log, observer)

	// Phase 2: backing stores, bounded so misconfiguration fails fast.
	startupCtx, startupCancel := context.WithTimeout(ctx, constants.StartupTimeout)
	opened, err := openStores(startupCtx, cfg, log, clock)
	startupCancel()
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer opened.close(log)

	// Phase 3: services and routes over the connected stores.
	authService := auth.NewService(auth.Deps{
		Identities:    opened.identities,
		Passwords:     passwords,
		Tokens:        codec,
		Verifications: verifications,
		Sender:        dispatcher,
		Observer:      observer,
		Clock:         clock,
	})
	accountService := account.NewService(opened.identities, passwords, observer)
	waitlistService := waitlist.NewService(opened.entries, verifications, dispatcher, observer, clock)

	if memoryStore, ok := opened.rateStore.(*ratelimit.MemoryStore); ok {
		go memoryStore.Run(ctx, constants.RateLimitSweepInterval)
	}

	policy := func(name string, limit int, window time.Duration) *ratelimit.Limiter {
		return ratelimit.New(opened.rateStore, ratelimit.Policy{Name: name, Limit: limit, Window: window}, observer)
	}

	liveness, readiness := api.NewHealthHandlers(opened.checks, log)

	server := api.NewServer(api.Options{
		Config:   cfg,
		Logger:   log,
		Verifier: codec,
		Observer: observer,
		Limiters: api.Limiters{
			General:  policy("general", cfg.GeneralRateLimit, cfg.GeneralRateWindow),
			Register: policy("register", cfg.RegisterRateLimit, cfg.RegisterRateWindow),
			Login:    policy("login", cfg.LoginRateLimit, cfg.LoginRateWindow),
			Verify:   policy("verify", cfg.VerifyRateLimit, cfg.VerifyRateWindow),
			Waitlist: policy("waitlist", cfg.WaitlistRateLimit, cfg.WaitlistRateWindow),
		},
		Handlers: api.Handlers{
			Liveness:  liveness,
			Readiness: readiness,
			Metrics:   observer.Handler(),
			Auth:      auth.NewHandler(authService),
			Account:   account.NewHandler(accountService),
			Waitlist:  waitlist.NewHandler(waitlistService),
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until a signal cancels ctx or the listener fails.
	select {
	case <-ctx.Done():
		log.Info("shutdown_signal_received")
	case err := <-serverErr:
		log.Error("server_listen_failed", slog.Any("error", err))
		return err
	}

	log.Info("shutting_down_server", slog.Duration("timeout", constants.ShutdownTimeout))
	if err := server.Shutdown(constants.ShutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer drainCancel()
	if err := dispatcher.Close(drainCtx); err != nil {
		log.Warn("notification_drain_incomplete", slog.Any("error", err))
	}

	log.Info("server_stopped_cleanly")
	return nil
}
