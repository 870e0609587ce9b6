package protocol

import (
	"context"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// DeliveryResult reports an outbound message or email delivery.
type DeliveryResult struct {
	MessageID   string
	DeliveredAt string
}

// HTTPResult reports a webhook call.
type HTTPResult struct {
	StatusCode int
	Body       map[string]any
}

// MessagingGateway sends messages on the tenant's messaging channel.
// Implementations must treat idempotencyKey as a deduplication token.
type MessagingGateway interface {
	SendText(ctx context.Context, tenantID string, params *models.MessageParams, idempotencyKey string) (*DeliveryResult, error)
	SendMedia(ctx context.Context, tenantID string, params *models.MessageParams, idempotencyKey string) (*DeliveryResult, error)
}

// EmailGateway sends transactional email.
type EmailGateway interface {
	Send(ctx context.Context, tenantID string, params *models.EmailParams, idempotencyKey string) (*DeliveryResult, error)
}

// CRMStore mutates contact and deal records.
type CRMStore interface {
	AddTag(ctx context.Context, tenantID string, params *models.TagParams) error
	UpdateField(ctx context.Context, tenantID string, params *models.FieldParams) error
}

// AIResponse is a generated enrichment plus its usage accounting.
type AIResponse struct {
	Text       string
	TokensUsed int
	Cost       float64
}

// AIClient generates content for AI-enhanced actions. Usage is recorded on
// the log row even when the surrounding action fails afterwards.
type AIClient interface {
	Generate(ctx context.Context, tenantID, prompt string) (*AIResponse, error)
}
