package models

import (
	"fmt"
	"time"
)

// LogStatus is the outcome recorded for one node execution attempt.
type LogStatus string

const (
	LogStatusSuccess   LogStatus = "success"
	LogStatusFailed    LogStatus = "failed"
	LogStatusSkipped   LogStatus = "skipped"
	LogStatusScheduled LogStatus = "scheduled" // delay node parked the run
)

// WorkflowLog is one row per node execution attempt. Retries produce
// multiple rows sharing (run_id, node_id) with distinct attempt ordinals.
// Rows are append-only and never mutated after write.
type WorkflowLog struct {
	ID       string    `json:"id"`
	RunID    string    `json:"run_id"`
	NodeID   string    `json:"node_id"`
	NodeKind NodeKind  `json:"node_kind"`
	Attempt  int       `json:"attempt"`
	Status   LogStatus `json:"status"`

	Input  map[string]any `json:"input,omitempty"`
	Output map[string]any `json:"output,omitempty"`

	// Note carries evaluation diagnostics (e.g. absent condition fields)
	// that are warnings, not errors.
	Note string `json:"note,omitempty"`

	// TokensUsed and Cost are zero unless an AI-enhanced action ran.
	TokensUsed int     `json:"tokens_used"`
	Cost       float64 `json:"cost"`

	Duration     time.Duration `json:"duration"`
	ErrorMessage string        `json:"error_message,omitempty"`
	ExecutedAt   time.Time     `json:"executed_at"`
}

// AttemptKey is the idempotency key for deduplicating retried side effects.
func (l *WorkflowLog) AttemptKey() string {
	return fmt.Sprintf("%s:%s:%d", l.RunID, l.NodeID, l.Attempt)
}
