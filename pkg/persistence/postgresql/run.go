package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

// RunRepository handles workflow run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
	logs   *LogRepository
}

const runColumns = `
	id
  , workflow_id
  , workflow_version
  , tenant_id
  , status
  , trigger_data
  , context
  , current_node_id
  , attempt
  , not_before
  , cancel_requested
  , result
  , error
  , started_at
  , completed_at
`

func (r *RunRepository) Create(ctx context.Context, run *models.WorkflowRun) error {
	triggerJSON, contextJSON, resultJSON, err := marshalRunFields(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_runs (id, workflow_id, workflow_version, tenant_id, status, trigger_data, context, current_node_id, attempt, not_before, cancel_requested, result, error, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.WorkflowID,
		run.WorkflowVersion,
		run.TenantID,
		run.Status,
		triggerJSON,
		contextJSON,
		run.CurrentNodeID,
		run.Attempt,
		run.NotBefore,
		run.CancelRequested,
		resultJSON,
		run.Error,
		run.StartedAt,
		run.CompletedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return persistence.ErrRunAlreadyExists
		}

		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM workflow_runs
		WHERE id = $1
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	return run, nil
}

func (r *RunRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM workflow_runs
		WHERE workflow_id = $1
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	return r.collect(ctx, rows)
}

// Advance persists a run mutation together with its log row in one
// transaction. This is the write barrier between node executions: the
// next step is only dispatched after both rows are durable.
func (r *RunRepository) Advance(ctx context.Context, run *models.WorkflowRun, logRow *models.WorkflowLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = r.update(ctx, tx, run); err != nil {
		return err
	}

	if err = r.logs.insert(ctx, tx, logRow); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *RunRepository) Update(ctx context.Context, run *models.WorkflowRun) error {
	return r.update(ctx, r.db, run)
}

// ListDue returns non-terminal runs whose re-admission instant has passed.
func (r *RunRepository) ListDue(ctx context.Context, now time.Time) ([]*models.WorkflowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM workflow_runs
		WHERE status IN ($1, $2)
		  AND not_before IS NOT NULL
		  AND not_before <= $3
		ORDER BY not_before
	`

	rows, err := r.db.QueryContext(ctx, query, models.RunStatusPending, models.RunStatusWaiting, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query due runs: %w", err)
	}

	return r.collect(ctx, rows)
}

// RequestCancel sets the cooperative cancellation flag.
func (r *RunRepository) RequestCancel(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE workflow_runs SET cancel_requested = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to request cancellation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrRunNotFound
	}

	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *RunRepository) update(ctx context.Context, db execer, run *models.WorkflowRun) error {
	triggerJSON, contextJSON, resultJSON, err := marshalRunFields(run)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflow_runs SET
			status = $2,
			trigger_data = $3,
			context = $4,
			current_node_id = $5,
			attempt = $6,
			not_before = $7,
			cancel_requested = $8,
			result = $9,
			error = $10,
			completed_at = $11
		WHERE id = $1
	`

	result, err := db.ExecContext(ctx, query,
		run.ID,
		run.Status,
		triggerJSON,
		contextJSON,
		run.CurrentNodeID,
		run.Attempt,
		run.NotBefore,
		run.CancelRequested,
		resultJSON,
		run.Error,
		run.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return persistence.ErrRunNotFound
	}

	return nil
}

func (r *RunRepository) collect(ctx context.Context, rows *sql.Rows) ([]*models.WorkflowRun, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

func scanRun(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowRun, error) {
	var (
		run                                 models.WorkflowRun
		triggerJSON, contextJSON, resultJSON []byte
		currentNodeID                       sql.NullString
	)

	err := scanner.Scan(
		&run.ID,
		&run.WorkflowID,
		&run.WorkflowVersion,
		&run.TenantID,
		&run.Status,
		&triggerJSON,
		&contextJSON,
		&currentNodeID,
		&run.Attempt,
		&run.NotBefore,
		&run.CancelRequested,
		&resultJSON,
		&run.Error,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	run.CurrentNodeID = currentNodeID.String

	if triggerJSON != nil {
		if err := json.Unmarshal(triggerJSON, &run.TriggerData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger data: %w", err)
		}
	}

	if contextJSON != nil {
		if err := json.Unmarshal(contextJSON, &run.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run context: %w", err)
		}
	}

	if resultJSON != nil {
		if err := json.Unmarshal(resultJSON, &run.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
		}
	}

	return &run, nil
}

func marshalRunFields(run *models.WorkflowRun) (trigger, runContext, result []byte, err error) {
	trigger, err = json.Marshal(run.TriggerData)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	runContext, err = json.Marshal(run.Context)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal run context: %w", err)
	}

	if run.Result != nil {
		result, err = json.Marshal(run.Result)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal run result: %w", err)
		}
	}

	return trigger, runContext, result, nil
}
