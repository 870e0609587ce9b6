// Package persistence provides the data storage abstraction for workflows,
// runs and execution logs.
package persistence

import (
	"context"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// Persistence bundles the repositories backing the runtime.
type Persistence interface {
	Workflows() WorkflowRepository
	Runs() RunRepository
	Logs() LogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions and their published
// version snapshots. Snapshots are immutable: a run always executes against
// the snapshot of the version active when it started.
type WorkflowRepository interface {
	List(ctx context.Context, tenantID string) ([]*models.Workflow, error)
	ListPublished(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	SaveSnapshot(ctx context.Context, snapshot *models.Workflow) error
	GetSnapshot(ctx context.Context, workflowID string, version int) (*models.Workflow, error)
}

// RunRepository stores workflow runs. Runs are inserted once, advanced by a
// single writer (the engine worker holding the step event) and never deleted.
type RunRepository interface {
	Create(ctx context.Context, run *models.WorkflowRun) error
	GetByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error)

	// Advance persists the run mutation and appends the log row as one
	// atomic unit. This is the write barrier between node steps: a crash
	// after Advance resumes from the new current node, never re-executing
	// the node the log row records.
	Advance(ctx context.Context, run *models.WorkflowRun, logRow *models.WorkflowLog) error

	// Update persists a run mutation without a log row (status flips that
	// execute no node, e.g. pending->running or cancellation).
	Update(ctx context.Context, run *models.WorkflowRun) error

	// ListDue returns pending/waiting runs whose NotBefore instant has
	// passed, for re-admission by the scheduler.
	ListDue(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error)

	// RequestCancel sets the cooperative cancellation flag.
	RequestCancel(ctx context.Context, id string) error
}

// LogRepository stores node execution attempts, append-only.
type LogRepository interface {
	Append(ctx context.Context, row *models.WorkflowLog) error

	// ListByRun returns the run's rows ordered by executed_at.
	ListByRun(ctx context.Context, runID string) ([]*models.WorkflowLog, error)
}
