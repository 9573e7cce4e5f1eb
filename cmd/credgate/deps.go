// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/credgate/credgate/internal/observability"
	"github.com/credgate/credgate/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// OpenDB connects to PostgreSQL.
	// Default: store.Open
	OpenDB func(ctx context.Context, url string, opts store.OpenOptions) (*pgxpool.Pool, error)

	// MigratorFactory creates a migrator for auto_migrate.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// RedisFactory connects the replay guard's Redis client.
	// Default: redis.ParseURL + redis.NewClient
	RedisFactory func(ctx context.Context, url string) (RedisClient, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// OnReady is called once every server is listening.
	OnReady func(apiAddr, observabilityAddr string)
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Status() (store.Status, error)
	Close() error
}

// RedisClient is the replay guard's view of a Redis connection.
type RedisClient interface {
	redis.Cmdable
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.OpenDB == nil {
		out.OpenDB = store.Open
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = migratorFactory
	}
	if out.RedisFactory == nil {
		out.RedisFactory = dialRedis
	}
	if out.ObservabilityServerFactory == nil {
		out.ObservabilityServerFactory = func(addr string, isReady observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, isReady, nil)
		}
	}
	return &out
}

func newMigrator(url string) (Migrator, error) {
	return store.NewMigrator(url)
}
