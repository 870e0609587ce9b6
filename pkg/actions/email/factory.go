package email

import (
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

type Factory struct {
	gateway protocol.EmailGateway
}

func NewFactory(gateway protocol.EmailGateway) *Factory {
	return &Factory{gateway: gateway}
}

func (f *Factory) Create(config *models.ActionConfig) (protocol.Action, error) {
	return NewAction(config, f.gateway)
}

func (f *Factory) Kind() models.ActionKind {
	return models.ActionSendEmail
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"action", "to", "subject", "body"},
		"properties": map[string]any{
			"action":          map[string]any{"type": "string", "const": string(models.ActionSendEmail)},
			"to":              map[string]any{"type": "string", "minLength": 3},
			"subject":         map[string]any{"type": "string", "minLength": 1},
			"body":            map[string]any{"type": "string", "minLength": 1},
			"continueOnError": map[string]any{"type": "boolean"},
			"rateLimited":     map[string]any{"type": "boolean"},
			"timeoutSeconds":  map[string]any{"type": "integer", "minimum": 1},
		},
	}
}
