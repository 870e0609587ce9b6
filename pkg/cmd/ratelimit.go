package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/fluxa-crm/fluxa/pkg/ratelimit"
)

// NewRateLimiter builds the admission limiter. With a Redis URL the window
// state is shared across dispatchers and workers; without one, counting is
// per-process and only correct for a single instance.
func NewRateLimiter(logger *slog.Logger, redisURL string) ratelimit.Limiter {
	if redisURL == "" {
		logger.Warn("No Redis URL configured, using in-process rate limiter")

		return ratelimit.NewMemoryLimiter()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	return ratelimit.NewRedisLimiter(redis.NewClient(opts))
}

// ParseHolidays splits a comma-separated list of YYYY-MM-DD dates.
func ParseHolidays(value string) []string {
	if value == "" {
		return nil
	}

	dates := strings.Split(value, ",")
	for i, date := range dates {
		dates[i] = strings.TrimSpace(date)
	}

	return dates
}
