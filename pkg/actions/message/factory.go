package message

import (
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

// Factory builds message actions for one of the three messaging kinds.
type Factory struct {
	kind    models.ActionKind
	gateway protocol.MessagingGateway
	client  protocol.AIClient
}

func NewFactory(kind models.ActionKind, gateway protocol.MessagingGateway, client protocol.AIClient) *Factory {
	return &Factory{kind: kind, gateway: gateway, client: client}
}

func (f *Factory) Create(config *models.ActionConfig) (protocol.Action, error) {
	return NewAction(config, f.gateway, f.client)
}

func (f *Factory) Kind() models.ActionKind {
	return f.kind
}

func (f *Factory) Schema() map[string]any {
	required := []any{"action", "contactId"}
	properties := map[string]any{
		"action":          map[string]any{"type": "string", "const": string(f.kind)},
		"contactId":       map[string]any{"type": "string", "minLength": 1},
		"content":         map[string]any{"type": "string", "minLength": 1},
		"aiEnabled":       map[string]any{"type": "boolean"},
		"continueOnError": map[string]any{"type": "boolean"},
		"rateLimited":     map[string]any{"type": "boolean"},
		"timeoutSeconds":  map[string]any{"type": "integer", "minimum": 1},
	}

	if f.kind == models.ActionSendMessage {
		required = append(required, "content")
	} else {
		required = append(required, "mediaUrl")
		properties["mediaUrl"] = map[string]any{"type": "string", "minLength": 1}
	}

	return map[string]any{
		"type":       "object",
		"required":   required,
		"properties": properties,
	}
}
