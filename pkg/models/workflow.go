// Package models defines the core domain models for the workflow automation runtime.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable, not executable
	WorkflowStatusPublished WorkflowStatus = "published" // Active, executable
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Historical, not executable
)

// RateLimitPolicy decides what happens to an execution that exceeds the window.
type RateLimitPolicy string

const (
	RateLimitPolicyQueue RateLimitPolicy = "queue" // Defer to the next eligible instant
	RateLimitPolicyDrop  RateLimitPolicy = "drop"  // Reject outright
)

// RateLimitConfig caps executions per rolling window for one workflow.
type RateLimitConfig struct {
	Max           int             `json:"max"            validate:"required,min=1"`
	WindowSeconds int             `json:"window_seconds" validate:"required,min=1"`
	Policy        RateLimitPolicy `json:"policy,omitempty"`
}

// Window returns the rolling window as a duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Workflow is a versioned, tenant-scoped automation graph. A run always
// executes against the exact snapshot of the version active when the run
// started; publishing stores that snapshot keyed by (id, version).
type Workflow struct {
	ID            string           `json:"id"`
	TenantID      string           `json:"tenant_id"      validate:"required"`
	Name          string           `json:"name"           validate:"required,min=3"`
	Status        WorkflowStatus   `json:"status"         validate:"required"`
	Version       int              `json:"version"`
	Graph         *Graph           `json:"graph"`
	TriggerConfig *TriggerConfig   `json:"trigger_config"`
	RateLimit     *RateLimitConfig `json:"rate_limit_config,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	PublishedAt   *time.Time       `json:"published_at,omitempty"`
}

// IsPublished reports whether the workflow accepts triggers.
func (w *Workflow) IsPublished() bool {
	return w.Status == WorkflowStatusPublished
}
