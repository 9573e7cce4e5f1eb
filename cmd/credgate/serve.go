// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/credgate/credgate/internal/auth"
	"github.com/credgate/credgate/internal/auth/memory"
	"github.com/credgate/credgate/internal/auth/postgres"
	"github.com/credgate/credgate/internal/config"
	"github.com/credgate/credgate/internal/httpapi"
	"github.com/credgate/credgate/internal/logging"
	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/internal/store"
	"github.com/credgate/credgate/internal/token"
	"github.com/credgate/credgate/pkg/errutil"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the credential API",
		Long: `Start the HTTP API for every configured site, plus the metrics and
health server when observability.addr is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServeWithDeps(ctx, cmd, nil)
		},
	}

	defaults := config.Default()
	cmd.Flags().String("http-addr", defaults.HTTP.Addr, "API listen address")
	cmd.Flags().String("observability-addr", defaults.Observability.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("database-driver", defaults.Database.Driver, "record store (memory or postgres)")
	cmd.Flags().Bool("auto-migrate", false, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies and blocks
// until ctx is cancelled or a server fails. If deps is nil, default
// implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	opts, err := loadOptions(cmd.Flags())
	if err != nil {
		return err
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return oops.Wrapf(err, "invalid configuration")
	}

	level, _ := logging.ParseLevel(cfg.Log.Level) //nolint:errcheck // validated by config.Load
	logger := logging.Setup("credgate", version, cfg.Log.Format, level, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	hasher := auth.NewArgon2idHasherWithParams(cfg.Argon2Params())

	records, closeStore, err := openRecordStore(ctx, cfg, deps, hasher, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var replay auth.ReplayGuard
	if cfg.Token.SingleUse {
		rdb, err := deps.RedisFactory(ctx, cfg.Token.RedisURL)
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Warn("error closing redis client", "error", err)
			}
		}()
		replay = token.NewRedisReplayGuard(rdb, clockwork.NewRealClock())
		logger.Info("reset tokens are single-use")
	}

	var api *httpapi.Server
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Observability.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Observability.Addr, func() bool {
			return api != nil && api.Ready()
		})
		metrics = obsServer.Metrics()
	}

	sites, err := buildSites(cfg, siteDeps{
		store:   records,
		hasher:  hasher,
		replay:  replay,
		metrics: metrics,
		logger:  logger,
	})
	if err != nil {
		return err
	}

	apiOpts := httpapi.Options{
		Addr:        cfg.HTTP.Addr,
		ReadTimeout: cfg.ReadTimeout(),
		TrustProxy:  cfg.HTTP.TrustProxy,
		Logger:      logger,
	}
	if metrics != nil {
		apiOpts.Metrics = metrics
	}
	api, err = httpapi.NewServer(sites, apiOpts)
	if err != nil {
		return err
	}

	apiErrCh, err := api.Start()
	if err != nil {
		return err
	}
	go monitorServerErrors(ctx, cancel, apiErrCh, "http")

	obsAddr := ""
	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer shutdownCancel()
			if stopErr := api.Shutdown(shutdownCtx); stopErr != nil {
				logger.Warn("failed to stop http server during cleanup", "error", stopErr)
			}
			return err
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
		obsAddr = obsServer.Addr()
	}

	logger.Info("credgate ready",
		"http_addr", api.Addr(),
		"observability_addr", obsAddr,
		"sites", len(sites),
		"database_driver", cfg.Database.Driver,
	)
	if deps.OnReady != nil {
		deps.OnReady(api.Addr(), obsAddr)
	}

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer shutdownCancel()

	var shutdownErr error
	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping http server", "error", err)
		shutdownErr = err
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return shutdownErr
}

func openRecordStore(ctx context.Context, cfg *config.Config, deps *ServeDeps, hasher auth.PasswordHasher, logger *slog.Logger) (auth.RecordStore, func(), error) {
	if cfg.Database.Driver != config.DriverPostgres {
		logger.Warn("using the in-memory record store; records are lost on restart")
		return memory.NewStore(hasher), func() {}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := migrateUp(deps, cfg.Database.URL, logger); err != nil {
			return nil, nil, err
		}
	}

	pool, err := deps.OpenDB(ctx, cfg.Database.URL, store.OpenOptions{
		MaxConns: cfg.Database.MaxConns,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database")
	return postgres.NewRecordStore(pool, hasher), pool.Close, nil
}

func migrateUp(deps *ServeDeps, url string, logger *slog.Logger) error {
	m, err := deps.MigratorFactory(url)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("error closing migrator", "error", err)
		}
	}()
	if err := m.Up(); err != nil {
		return oops.Code("AUTO_MIGRATE_FAILED").Wrap(err)
	}
	v, _, err := m.Version()
	if err != nil {
		return err //nolint:wrapcheck // migrator errors carry their own context
	}
	logger.Info("database migrated", "version", v)
	return nil
}

func dialRedis(ctx context.Context, url string) (RedisClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_URL_INVALID").Wrap(err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close() //nolint:errcheck // already failing
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return rdb, nil
}

// monitorServerErrors cancels ctx when a server reports a serve failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			errutil.LogError(slog.Default(), "server error, triggering shutdown",
				oops.With("server", serverName).Wrap(err))
			cancel()
		}
	case <-ctx.Done():
	}
}
