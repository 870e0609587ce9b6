package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

// WorkflowRepository handles workflow and snapshot database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const workflowColumns = `
	id
  , tenant_id
  , name
  , status
  , version
  , graph
  , trigger_config
  , rate_limit_config
  , created_at
  , updated_at
  , published_at
`

// List returns all workflows for a tenant, newest first.
func (r *WorkflowRepository) List(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE tenant_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	return r.collect(ctx, rows)
}

// ListPublished returns every published workflow across tenants.
func (r *WorkflowRepository) ListPublished(ctx context.Context) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE status = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, models.WorkflowStatusPublished)
	if err != nil {
		return nil, fmt.Errorf("failed to query published workflows: %w", err)
	}

	return r.collect(ctx, rows)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1
	`

	workflow, err := r.scanWorkflow(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// Save upserts a workflow, assigning an ID and timestamps when missing.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	graphJSON, triggerJSON, rateLimitJSON, err := marshalWorkflowFields(workflow)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (id, tenant_id, name, status, version, graph, trigger_config, rate_limit_config, created_at, updated_at, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			graph = EXCLUDED.graph,
			trigger_config = EXCLUDED.trigger_config,
			rate_limit_config = EXCLUDED.rate_limit_config,
			updated_at = EXCLUDED.updated_at,
			published_at = EXCLUDED.published_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.TenantID,
		workflow.Name,
		workflow.Status,
		workflow.Version,
		graphJSON,
		triggerJSON,
		rateLimitJSON,
		workflow.CreatedAt,
		workflow.UpdatedAt,
		workflow.PublishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return nil
}

// SaveSnapshot stores an immutable copy of the workflow at its current version.
func (r *WorkflowRepository) SaveSnapshot(ctx context.Context, workflow *models.Workflow) error {
	body, err := json.Marshal(workflow)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	query := `
		INSERT INTO workflow_snapshots (workflow_id, version, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (workflow_id, version) DO NOTHING
	`

	_, err = r.db.ExecContext(ctx, query, workflow.ID, workflow.Version, body)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) GetSnapshot(ctx context.Context, workflowID string, version int) (*models.Workflow, error) {
	var body []byte

	query := "SELECT body FROM workflow_snapshots WHERE workflow_id = $1 AND version = $2"

	err := r.db.QueryRowContext(ctx, query, workflowID, version).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSnapshotNotFound
		}

		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(body, &workflow); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) collect(ctx context.Context, rows *sql.Rows) ([]*models.Workflow, error) {
	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) scanWorkflow(scanner interface {
	Scan(dest ...any) error
}) (*models.Workflow, error) {
	var (
		workflow                             models.Workflow
		graphJSON, triggerJSON, rateLimitJSON []byte
	)

	err := scanner.Scan(
		&workflow.ID,
		&workflow.TenantID,
		&workflow.Name,
		&workflow.Status,
		&workflow.Version,
		&graphJSON,
		&triggerJSON,
		&rateLimitJSON,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
		&workflow.PublishedAt,
	)
	if err != nil {
		return nil, err
	}

	if graphJSON != nil {
		if err := json.Unmarshal(graphJSON, &workflow.Graph); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph: %w", err)
		}
	}

	if triggerJSON != nil {
		if err := json.Unmarshal(triggerJSON, &workflow.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	if rateLimitJSON != nil {
		if err := json.Unmarshal(rateLimitJSON, &workflow.RateLimit); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rate limit config: %w", err)
		}
	}

	return &workflow, nil
}

func marshalWorkflowFields(workflow *models.Workflow) (graph, trigger, rateLimit []byte, err error) {
	graph, err = json.Marshal(workflow.Graph)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal graph: %w", err)
	}

	trigger, err = json.Marshal(workflow.TriggerConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	if workflow.RateLimit != nil {
		rateLimit, err = json.Marshal(workflow.RateLimit)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal rate limit config: %w", err)
		}
	}

	return graph, trigger, rateLimit, nil
}
