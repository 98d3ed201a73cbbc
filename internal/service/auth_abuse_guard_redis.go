package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	abuseFieldFailures      = "failures"
	abuseFieldLastFailure   = "last_failure_ms"
	abuseFieldCooldownUntil = "cooldown_until_ms"
)

// RedisAuthAbuseGuard shares failure state across instances. Each
// (scope, dimension, value) triple maps to a hash whose TTL doubles as the
// reset window.
type RedisAuthAbuseGuard struct {
	client redis.UniversalClient
	prefix string
	policy AuthAbusePolicy
	now    func() time.Time
}

func NewRedisAuthAbuseGuard(client redis.UniversalClient, prefix string, policy AuthAbusePolicy) *RedisAuthAbuseGuard {
	if prefix == "" {
		prefix = "auth_abuse"
	}
	return &RedisAuthAbuseGuard{
		client: client,
		prefix: prefix,
		policy: policy.normalized(),
		now:    time.Now,
	}
}

func (g *RedisAuthAbuseGuard) WithClock(now func() time.Time) *RedisAuthAbuseGuard {
	g.now = now
	return g
}

func (g *RedisAuthAbuseGuard) Check(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	var worst time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		fields, err := g.client.HGetAll(ctx, g.stateKey(scope, d.dim, d.value)).Result()
		if err != nil {
			return 0, err
		}
		if len(fields) == 0 {
			continue
		}
		untilMs, err := parseAbuseMillis(fields[abuseFieldCooldownUntil])
		if err != nil {
			return 0, fmt.Errorf("parse %s: %w", abuseFieldCooldownUntil, err)
		}
		if remaining := time.UnixMilli(untilMs).Sub(now); remaining > worst {
			worst = remaining
		}
	}
	return worst, nil
}

func (g *RedisAuthAbuseGuard) RegisterFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	now := g.now()
	var worst time.Duration
	for _, d := range abuseDimensions(identity, ip) {
		key := g.stateKey(scope, d.dim, d.value)
		failures, err := g.client.HIncrBy(ctx, key, abuseFieldFailures, 1).Result()
		if err != nil {
			return 0, err
		}
		cooldown := g.policy.cooldownAfter(int(failures))
		pipe := g.client.TxPipeline()
		pipe.HSet(ctx, key,
			abuseFieldLastFailure, now.UnixMilli(),
			abuseFieldCooldownUntil, now.Add(cooldown).UnixMilli(),
		)
		pipe.Expire(ctx, key, g.policy.ResetWindow)
		if _, err := pipe.Exec(ctx); err != nil {
			return 0, err
		}
		if cooldown > worst {
			worst = cooldown
		}
	}
	return worst, nil
}

func (g *RedisAuthAbuseGuard) Reset(ctx context.Context, scope AuthAbuseScope, identity, ip string) error {
	for _, d := range abuseDimensions(identity, ip) {
		if err := g.client.Del(ctx, g.stateKey(scope, d.dim, d.value)).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (g *RedisAuthAbuseGuard) stateKey(scope AuthAbuseScope, dim, value string) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, scope, dim, value)
}

// parseAbuseMillis tolerates a missing hash field: the counter increment and
// the cooldown write are separate commands, so a concurrent reader can see a
// hash holding only the failures count. That reads as no cooldown.
func parseAbuseMillis(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
