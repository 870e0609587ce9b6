package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// RedisLimiter implements the sliding window on a Redis sorted set per key,
// scored by admission time. Shared by every dispatcher replica.
type RedisLimiter struct {
	client *redis.Client
}

func NewRedisLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{client: client}
}

func (l *RedisLimiter) Admit(ctx context.Context, key string, config *models.RateLimitConfig, now time.Time) (Admission, error) {
	if config == nil {
		return Admission{Decision: DecisionAllowed}, nil
	}

	redisKey := "fluxa:ratelimit:" + key
	cutoff := now.Add(-config.Window())

	if err := l.client.ZRemRangeByScore(ctx, redisKey, "0", formatScore(cutoff)).Err(); err != nil {
		return Admission{}, fmt.Errorf("failed to trim rate limit window: %w", err)
	}

	count, err := l.client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return Admission{}, fmt.Errorf("failed to count rate limit window: %w", err)
	}

	if int(count) < config.Max {
		member := redis.Z{Score: score(now), Member: fmt.Sprintf("%d-%s", now.UnixNano(), key)}
		if err := l.client.ZAdd(ctx, redisKey, member).Err(); err != nil {
			return Admission{}, fmt.Errorf("failed to record admission: %w", err)
		}

		if err := l.client.Expire(ctx, redisKey, config.Window()).Err(); err != nil {
			return Admission{}, fmt.Errorf("failed to expire rate limit key: %w", err)
		}

		return Admission{Decision: DecisionAllowed}, nil
	}

	earliest, err := l.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return Admission{}, fmt.Errorf("failed to read rate limit window: %w", err)
	}

	if len(earliest) == 0 {
		return Admission{Decision: DecisionAllowed}, nil
	}

	return decide(config, fromScore(earliest[0].Score)), nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func formatScore(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func fromScore(s float64) time.Time {
	return time.UnixMilli(int64(s))
}
