// Package crm implements the contact record actions: add_tag and
// update_field.
package crm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/protocol"
	"github.com/fluxa-crm/fluxa/pkg/template"
)

var ErrMissingStore = errors.New("crm store not configured")

type Action struct {
	kind  models.ActionKind
	tag   *models.TagParams
	field *models.FieldParams
	store protocol.CRMStore
}

func NewAction(config *models.ActionConfig, store protocol.CRMStore) (*Action, error) {
	if store == nil {
		return nil, ErrMissingStore
	}

	return &Action{
		kind:  config.Kind,
		tag:   config.Tag,
		field: config.Field,
		store: store,
	}, nil
}

func (a *Action) Execute(ctx context.Context, run *models.WorkflowRun, _ string, logger *slog.Logger) (*protocol.ActionResult, error) {
	logger = logger.With("module", "crm_action", "kind", a.kind)

	switch a.kind {
	case models.ActionAddTag:
		return a.addTag(ctx, run, logger)
	case models.ActionUpdateField:
		return a.updateField(ctx, run, logger)
	default:
		return nil, fmt.Errorf("unsupported crm action kind '%s'", a.kind)
	}
}

func (a *Action) addTag(ctx context.Context, run *models.WorkflowRun, logger *slog.Logger) (*protocol.ActionResult, error) {
	entityID, err := template.RenderString(a.tag.EntityID, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render entity id: %w", err)
	}

	tag, err := template.RenderString(a.tag.Tag, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render tag: %w", err)
	}

	params := &models.TagParams{EntityID: entityID, Tag: tag}
	if err := a.store.AddTag(ctx, run.TenantID, params); err != nil {
		return nil, fmt.Errorf("failed to add tag: %w", err)
	}

	logger.InfoContext(ctx, "Tag added", "entity_id", entityID, "tag", tag)

	return &protocol.ActionResult{
		Output: map[string]any{"entity_id": entityID, "tag": tag},
	}, nil
}

func (a *Action) updateField(ctx context.Context, run *models.WorkflowRun, logger *slog.Logger) (*protocol.ActionResult, error) {
	entityID, err := template.RenderString(a.field.EntityID, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render entity id: %w", err)
	}

	value, err := template.RenderString(a.field.Value, run)
	if err != nil {
		return nil, fmt.Errorf("failed to render field value: %w", err)
	}

	params := &models.FieldParams{EntityID: entityID, Field: a.field.Field, Value: value}
	if err := a.store.UpdateField(ctx, run.TenantID, params); err != nil {
		return nil, fmt.Errorf("failed to update field: %w", err)
	}

	logger.InfoContext(ctx, "Field updated", "entity_id", entityID, "field", a.field.Field)

	return &protocol.ActionResult{
		Output: map[string]any{"entity_id": entityID, "field": a.field.Field, "value": value},
	}, nil
}
