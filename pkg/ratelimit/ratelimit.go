// Package ratelimit enforces per-workflow execution caps over a rolling
// window.
package ratelimit

import (
	"context"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// Decision is the outcome of an admission check.
type Decision string

const (
	DecisionAllowed  Decision = "allowed"
	DecisionDeferred Decision = "deferred"
	DecisionRejected Decision = "rejected"
)

// Admission carries the decision and, for deferrals, the next instant at
// which the execution becomes eligible.
type Admission struct {
	Decision     Decision
	NextEligible time.Time
}

func (a Admission) Allowed() bool {
	return a.Decision == DecisionAllowed
}

// Limiter decides whether an execution keyed by workflow (or by a
// rate-limited action) may proceed now. An allowed admission consumes one
// slot of the window.
type Limiter interface {
	Admit(ctx context.Context, key string, config *models.RateLimitConfig, now time.Time) (Admission, error)
}

// decide maps a full window to the configured overflow policy. earliest is
// the oldest timestamp still inside the window.
func decide(config *models.RateLimitConfig, earliest time.Time) Admission {
	if config.Policy == models.RateLimitPolicyDrop {
		return Admission{Decision: DecisionRejected}
	}

	return Admission{
		Decision:     DecisionDeferred,
		NextEligible: earliest.Add(config.Window()),
	}
}
