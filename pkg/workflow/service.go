package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

// ErrWorkflowPublished is returned when deleting a workflow that is still
// live; it must be archived first.
var ErrWorkflowPublished = errors.New("published workflows must be archived before deletion")

// Service implements workflow CRUD. Edits always land on the stored
// definition; runs are unaffected until the next publish.
type Service struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewService(persistence persistence.Persistence, logger *slog.Logger) *Service {
	return &Service{
		persistence: persistence,
		logger:      logger.With("module", "workflow"),
	}
}

func (s *Service) List(ctx context.Context, tenantID string) ([]*models.Workflow, error) {
	workflows, err := s.persistence.Workflows().List(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	return workflow, nil
}

func (s *Service) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	now := time.Now().UTC()
	workflow.ID = uuid.New().String()
	workflow.Status = models.WorkflowStatusDraft
	workflow.Version = 0
	workflow.CreatedAt = now
	workflow.UpdatedAt = now

	if workflow.Graph == nil {
		workflow.Graph = &models.Graph{}
	}

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow created", "workflow_id", workflow.ID, "tenant_id", workflow.TenantID)

	return workflow, nil
}

func (s *Service) Update(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	workflow.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	workflow, err := s.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get workflow for deletion: %w", err)
	}

	if workflow.IsPublished() {
		return ErrWorkflowPublished
	}

	if err := s.persistence.Workflows().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", id)

	return nil
}

func (s *Service) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}
