package webhook

import (
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(config *models.ActionConfig) (protocol.Action, error) {
	return NewAction(config)
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionCallWebhook
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"action", "url"},
		"properties": map[string]any{
			"action":          map[string]any{"type": "string", "const": string(models.ActionCallWebhook)},
			"url":             map[string]any{"type": "string", "minLength": 1},
			"method":          map[string]any{"type": "string", "enum": []any{"GET", "POST", "PUT", "PATCH", "DELETE"}},
			"payload":         map[string]any{"type": "object"},
			"idempotent":      map[string]any{"type": "boolean"},
			"continueOnError": map[string]any{"type": "boolean"},
			"rateLimited":     map[string]any{"type": "boolean"},
			"timeoutSeconds":  map[string]any{"type": "integer", "minimum": 1},
			"maxAttempts":     map[string]any{"type": "integer", "minimum": 1},
		},
	}
}
