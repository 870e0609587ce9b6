// Package email implements the send_email action.
package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
	"github.com/fluxa-crm/fluxa/pkg/template"
)

var ErrMissingGateway = errors.New("email gateway not configured")

type Action struct {
	params  models.EmailParams
	gateway protocol.EmailGateway
}

func NewAction(config *models.ActionConfig, gateway protocol.EmailGateway) (*Action, error) {
	if gateway == nil {
		return nil, ErrMissingGateway
	}

	return &Action{params: *config.Email, gateway: gateway}, nil
}

func (a *Action) Execute(ctx context.Context, run *models.WorkflowRun, attemptKey string, logger *slog.Logger) (*protocol.ActionResult, error) {
	logger = logger.With("module", "email_action")

	params, err := a.renderParams(run)
	if err != nil {
		return nil, err
	}

	delivery, err := a.gateway.Send(ctx, run.TenantID, params, attemptKey)
	if err != nil {
		return nil, fmt.Errorf("failed to send email: %w", err)
	}

	logger.InfoContext(ctx, "Email sent", "message_id", delivery.MessageID, "to", params.To)

	return &protocol.ActionResult{
		Output: map[string]any{
			"message_id":   delivery.MessageID,
			"delivered_at": delivery.DeliveredAt,
		},
	}, nil
}

func (a *Action) renderParams(run *models.WorkflowRun) (*models.EmailParams, error) {
	to, err := template.RenderString(a.params.To, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render recipient: %w", err)
	}

	subject, err := template.RenderString(a.params.Subject, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render subject: %w", err)
	}

	body, err := template.RenderString(a.params.Body, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render body: %w", err)
	}

	return &models.EmailParams{To: to, Subject: subject, Body: body}, nil
}
