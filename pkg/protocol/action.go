// Package protocol defines the contracts between the engine, the action
// handlers and the outbound gateways.
package protocol

import (
	"context"
	"log/slog"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// ActionResult is the outcome of one action execution, merged into the run
// context under the node id.
type ActionResult struct {
	Output map[string]any

	// TokensUsed and Cost are non-zero only for AI-enhanced executions.
	TokensUsed int
	Cost       float64
}

// Action executes one side effect against a run. The attemptKey is the
// idempotency key for the (run, node, attempt) triple; handlers forward it
// to gateways that support deduplication.
type Action interface {
	Execute(ctx context.Context, run *models.WorkflowRun, attemptKey string, logger *slog.Logger) (*ActionResult, error)
}

// ActionFactory builds handlers for one action kind from node config.
type ActionFactory interface {
	Create(config *models.ActionConfig) (Action, error)
	Kind() models.ActionKind

	// Schema returns the JSON schema validated against node config at
	// publish time.
	Schema() map[string]any
}
