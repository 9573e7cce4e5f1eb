// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package token

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/credgate/credgate/internal/auth"
)

// ReplayKeyPrefix prefixes every consumed token id in Redis.
const ReplayKeyPrefix = "credgate:reset:"

// RedisReplayGuard implements auth.ReplayGuard with SET NX. A key lives until
// the token it marks would have expired anyway.
type RedisReplayGuard struct {
	rdb   redis.Cmdable
	clock clockwork.Clock
}

var _ auth.ReplayGuard = (*RedisReplayGuard)(nil)

// NewRedisReplayGuard creates a guard. A nil clock uses the real clock.
func NewRedisReplayGuard(rdb redis.Cmdable, clock clockwork.Clock) *RedisReplayGuard {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisReplayGuard{rdb: rdb, clock: clock}
}

// Consume implements auth.ReplayGuard.
func (g *RedisReplayGuard) Consume(ctx context.Context, tokenID string, expiresAt time.Time) (bool, error) {
	if tokenID == "" {
		return false, oops.Code("REPLAY_TOKEN_ID_REQUIRED").Errorf("token id is required")
	}

	// Redis rejects sub-millisecond expiries; keep the key for at least a second.
	ttl := max(expiresAt.Sub(g.clock.Now()), time.Second)

	set, err := g.rdb.SetNX(ctx, ReplayKeyPrefix+tokenID, "1", ttl).Result()
	if err != nil {
		return false, oops.Code("REPLAY_CHECK_FAILED").With("token_id", tokenID).Wrap(err)
	}
	return set, nil
}
