package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// MemoryLimiter is the in-process limiter used for tests and single-node
// deployments.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{windows: make(map[string][]time.Time)}
}

func (l *MemoryLimiter) Admit(_ context.Context, key string, config *models.RateLimitConfig, now time.Time) (Admission, error) {
	if config == nil {
		return Admission{Decision: DecisionAllowed}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-config.Window())
	kept := l.windows[key][:0]

	for _, ts := range l.windows[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	l.windows[key] = kept

	if len(kept) < config.Max {
		l.windows[key] = append(kept, now)

		return Admission{Decision: DecisionAllowed}, nil
	}

	return decide(config, kept[0]), nil
}
