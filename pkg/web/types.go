// Package web provides the HTTP API for workflow management, runs and
// manual triggering.
package web

import (
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// CreateWorkflowRequest is the body for creating a draft workflow.
type CreateWorkflowRequest struct {
	Name          string                  `json:"name"              validate:"required,min=3"`
	TenantID      string                  `json:"tenantId"          validate:"required"`
	Graph         *models.Graph           `json:"graph"`
	TriggerConfig *models.TriggerConfig   `json:"triggerConfig"`
	RateLimit     *models.RateLimitConfig `json:"rateLimit,omitempty"`
}

// UpdateWorkflowRequest is the body for updating a workflow definition.
// Fields are optional to support partial updates; edits only affect runs
// after the next publish.
type UpdateWorkflowRequest struct {
	Name          *string                 `json:"name,omitempty" validate:"omitempty,min=3"`
	Graph         *models.Graph           `json:"graph,omitempty"`
	TriggerConfig *models.TriggerConfig   `json:"triggerConfig,omitempty"`
	RateLimit     *models.RateLimitConfig `json:"rateLimit,omitempty"`
}

// TriggerWorkflowRequest is the body for starting a run manually.
type TriggerWorkflowRequest struct {
	TenantID string         `json:"tenantId" validate:"required"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// RunResponse is the external view of a run. The internal waiting sub-state
// is reported as running.
type RunResponse struct {
	ID              string         `json:"id"`
	WorkflowID      string         `json:"workflow_id"`
	WorkflowVersion int            `json:"workflow_version"`
	TenantID        string         `json:"tenant_id"`
	Status          string         `json:"status"`
	CurrentNodeID   string         `json:"current_node_id,omitempty"`
	Result          map[string]any `json:"result,omitempty"`
	Error           string         `json:"error,omitempty"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

func toRunResponse(run *models.WorkflowRun) RunResponse {
	return RunResponse{
		ID:              run.ID,
		WorkflowID:      run.WorkflowID,
		WorkflowVersion: run.WorkflowVersion,
		TenantID:        run.TenantID,
		Status:          string(run.ExternalStatus()),
		CurrentNodeID:   run.CurrentNodeID,
		Result:          run.Result,
		Error:           run.Error,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
	}
}

func toRunResponses(runs []*models.WorkflowRun) []RunResponse {
	responses := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, toRunResponse(run))
	}

	return responses
}
