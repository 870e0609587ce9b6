package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

var (
	ErrWorkflowArchived = errors.New("archived workflows cannot be published")
	ErrNotPublished     = errors.New("workflow is not published")
)

// PublishingService runs the publish lifecycle: validate, bump the version
// and store the immutable snapshot runs will execute against.
type PublishingService struct {
	persistence persistence.Persistence
	validator   *Validator
}

func NewPublishingService(persistence persistence.Persistence, validator *Validator) *PublishingService {
	return &PublishingService{
		persistence: persistence,
		validator:   validator,
	}
}

// Publish validates the workflow and, if it is structurally sound, stores a
// new immutable version. In-flight runs keep executing their own snapshots.
func (s *PublishingService) Publish(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow for publishing: %w", err)
	}

	if workflow.Status == models.WorkflowStatusArchived {
		return nil, ErrWorkflowArchived
	}

	if errs := s.validator.Validate(workflow); errs != nil {
		return nil, errs
	}

	now := time.Now().UTC()
	workflow.Status = models.WorkflowStatusPublished
	workflow.Version++
	workflow.PublishedAt = &now

	if err := s.persistence.Workflows().SaveSnapshot(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow snapshot: %w", err)
	}

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save published workflow: %w", err)
	}

	return workflow, nil
}

// Archive retires a workflow. New triggers stop matching immediately;
// in-flight runs finish on their snapshots.
func (s *PublishingService) Archive(ctx context.Context, workflowID string) (*models.Workflow, error) {
	workflow, err := s.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow for archiving: %w", err)
	}

	workflow.Status = models.WorkflowStatusArchived

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to archive workflow: %w", err)
	}

	return workflow, nil
}

// Snapshot loads the immutable version a run executes against.
func (s *PublishingService) Snapshot(ctx context.Context, workflowID string, version int) (*models.Workflow, error) {
	snapshot, err := s.persistence.Workflows().GetSnapshot(ctx, workflowID, version)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow snapshot: %w", err)
	}

	return snapshot, nil
}
