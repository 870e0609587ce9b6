package crm

import (
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

// Factory builds crm actions for either add_tag or update_field.
type Factory struct {
	kind  models.ActionKind
	store protocol.CRMStore
}

func NewFactory(kind models.ActionKind, store protocol.CRMStore) *Factory {
	return &Factory{kind: kind, store: store}
}

func (f *Factory) Create(config *models.ActionConfig) (protocol.Action, error) {
	return NewAction(config, f.store)
}

func (f *Factory) Kind() models.ActionKind {
	return f.kind
}

func (f *Factory) Schema() map[string]any {
	if f.kind == models.ActionAddTag {
		return map[string]any{
			"type":     "object",
			"required": []any{"action", "entityId", "tag"},
			"properties": map[string]any{
				"action":          map[string]any{"type": "string", "const": string(models.ActionAddTag)},
				"entityId":        map[string]any{"type": "string", "minLength": 1},
				"tag":             map[string]any{"type": "string", "minLength": 1},
				"continueOnError": map[string]any{"type": "boolean"},
			},
		}
	}

	return map[string]any{
		"type":     "object",
		"required": []any{"action", "entityId", "field"},
		"properties": map[string]any{
			"action":          map[string]any{"type": "string", "const": string(models.ActionUpdateField)},
			"entityId":        map[string]any{"type": "string", "minLength": 1},
			"field":           map[string]any{"type": "string", "minLength": 1},
			"value":           map[string]any{"type": "string"},
			"continueOnError": map[string]any{"type": "boolean"},
		},
	}
}
