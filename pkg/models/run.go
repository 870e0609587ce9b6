package models

import "time"

// RunStatus represents the state of one workflow execution instance.
// "waiting" is the internal sub-state of a run parked on a delay or a rate
// limit deferral; externally it still counts as running.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusWaiting   RunStatus = "waiting"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// WorkflowRun is one execution instance of a workflow version. Created by
// the dispatcher, mutated only by the engine, never deleted.
type WorkflowRun struct {
	ID              string    `json:"id"`
	WorkflowID      string    `json:"workflow_id"`
	WorkflowVersion int       `json:"workflow_version"`
	TenantID        string    `json:"tenant_id"`
	Status          RunStatus `json:"status"`

	// TriggerData is the immutable snapshot of the triggering event.
	TriggerData map[string]any `json:"trigger_data,omitempty"`

	// Context maps node id to that node's output. Append-only.
	Context map[string]any `json:"context"`

	CurrentNodeID string `json:"current_node_id,omitempty"`

	// Attempt is the attempt ordinal for the current node, starting at 1.
	Attempt int `json:"attempt"`

	// NotBefore is the re-admission instant for waiting/deferred runs.
	NotBefore *time.Time `json:"not_before,omitempty"`

	// CancelRequested is the cooperative cancellation flag, checked by the
	// engine between node steps.
	CancelRequested bool `json:"cancel_requested"`

	Result map[string]any `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ExternalStatus maps the internal waiting sub-state to "running" for
// API consumers.
func (r *WorkflowRun) ExternalStatus() RunStatus {
	if r.Status == RunStatusWaiting {
		return RunStatusRunning
	}

	return r.Status
}

// IsTerminal reports whether the run reached a final status.
func (r *WorkflowRun) IsTerminal() bool {
	switch r.Status {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled:
		return true
	default:
		return false
	}
}

// IsActive reports whether the run may still execute nodes.
func (r *WorkflowRun) IsActive() bool {
	return !r.IsTerminal()
}

// RecordOutput appends a node output to the run context.
func (r *WorkflowRun) RecordOutput(nodeID string, output map[string]any) {
	if r.Context == nil {
		r.Context = make(map[string]any)
	}

	r.Context[nodeID] = output
}
