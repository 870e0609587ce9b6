// Package message implements the messaging channel actions: send_message,
// send_image and send_document.
package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
	"github.com/fluxa-crm/fluxa/pkg/template"
)

var ErrMissingGateway = errors.New("messaging gateway not configured")

// Action delivers one message through the tenant's messaging gateway,
// optionally generating the content with the AI client first.
type Action struct {
	kind    models.ActionKind
	params  models.MessageParams
	ai      bool
	gateway protocol.MessagingGateway
	client  protocol.AIClient
}

func NewAction(config *models.ActionConfig, gateway protocol.MessagingGateway, client protocol.AIClient) (*Action, error) {
	if gateway == nil {
		return nil, ErrMissingGateway
	}

	return &Action{
		kind:    config.Kind,
		params:  *config.Message,
		ai:      config.AIEnabled,
		gateway: gateway,
		client:  client,
	}, nil
}

// Execute renders the message parameters against the run and delivers the
// message. On a delivery failure after AI generation the partial result
// still carries the token usage.
func (a *Action) Execute(ctx context.Context, run *models.WorkflowRun, attemptKey string, logger *slog.Logger) (*protocol.ActionResult, error) {
	logger = logger.With("module", "message_action", "kind", a.kind)

	params, err := a.renderParams(run)
	if err != nil {
		return nil, err
	}

	result := &protocol.ActionResult{}

	if a.ai {
		if a.client == nil {
			return nil, errors.New("ai enrichment enabled but no ai client configured")
		}

		response, err := a.client.Generate(ctx, run.TenantID, params.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to generate message content: %w", err)
		}

		params.Content = response.Text
		result.TokensUsed = response.TokensUsed
		result.Cost = response.Cost

		logger.InfoContext(ctx, "Generated message content", "tokens_used", response.TokensUsed)
	}

	var delivery *protocol.DeliveryResult

	switch a.kind {
	case models.ActionSendMessage:
		delivery, err = a.gateway.SendText(ctx, run.TenantID, params, attemptKey)
	case models.ActionSendImage, models.ActionSendDocument:
		delivery, err = a.gateway.SendMedia(ctx, run.TenantID, params, attemptKey)
	default:
		return nil, fmt.Errorf("unsupported message action kind '%s'", a.kind)
	}

	if err != nil {
		return result, fmt.Errorf("failed to deliver message: %w", err)
	}

	logger.InfoContext(ctx, "Message delivered", "message_id", delivery.MessageID)

	result.Output = map[string]any{
		"message_id":   delivery.MessageID,
		"delivered_at": delivery.DeliveredAt,
		"content":      params.Content,
	}

	return result, nil
}

func (a *Action) renderParams(run *models.WorkflowRun) (*models.MessageParams, error) {
	contactID, err := template.RenderString(a.params.ContactID, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render contact id: %w", err)
	}

	content, err := template.RenderString(a.params.Content, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render content: %w", err)
	}

	mediaURL, err := template.RenderString(a.params.MediaURL, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render media url: %w", err)
	}

	return &models.MessageParams{
		ContactID: contactID,
		Content:   content,
		MediaURL:  mediaURL,
	}, nil
}
