// Package registry maps action kinds to their handler factories and
// validates node configuration against each kind's schema.
package registry

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[models.ActionKind]protocol.ActionFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.ActionKind]protocol.ActionFactory),
	}
}

func (r *Registry) Register(factory protocol.ActionFactory) {
	r.factories[factory.Kind()] = factory
}

func (r *Registry) Create(kind models.ActionKind, config *models.ActionConfig) (protocol.Action, error) {
	factory, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("action kind '%s' not registered", kind)
	}

	return factory.Create(config)
}

// Kinds returns every registered action kind.
func (r *Registry) Kinds() []models.ActionKind {
	kinds := make([]models.ActionKind, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}

	return kinds
}

// Schema returns the JSON schema for a registered kind, or nil.
func (r *Registry) Schema(kind models.ActionKind) map[string]any {
	factory, ok := r.factories[kind]
	if !ok {
		return nil
	}

	return factory.Schema()
}

// ValidateConfig checks raw node config against the kind's JSON schema.
// Called at publish time so malformed configs never reach a worker.
func (r *Registry) ValidateConfig(kind models.ActionKind, config map[string]any) error {
	factory, ok := r.factories[kind]
	if !ok {
		return fmt.Errorf("action kind '%s' not registered", kind)
	}

	schemaLoader := gojsonschema.NewGoLoader(factory.Schema())
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for '%s': %w", kind, err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid config for '%s': %s", kind, strings.Join(descriptions, "; "))
	}

	return nil
}
