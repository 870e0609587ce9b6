package crm

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/mocks"
	"github.com/fluxa-crm/fluxa/pkg/models"
)

func testRun() *models.WorkflowRun {
	run := &models.WorkflowRun{
		ID:          "run-1",
		TenantID:    "tenant-1",
		TriggerData: map[string]any{"contact_id": "contact-9"},
	}
	run.RecordOutput("classify", map[string]any{"intent": "vendas"})

	return run
}

func TestExecute_AddTag(t *testing.T) {
	store := &mocks.MockCRMStore{}
	store.On("AddTag", mock.Anything, "tenant-1", &models.TagParams{
		EntityID: "contact-9",
		Tag:      "vendas",
	}).Return(nil)

	action, err := NewAction(&models.ActionConfig{
		Kind: models.ActionAddTag,
		Tag: &models.TagParams{
			EntityID: "{{ .trigger.contact_id }}",
			Tag:      "{{ .nodes.classify.intent }}",
		},
	}, store)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), testRun(), "key", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "vendas", result.Output["tag"])
	store.AssertExpectations(t)
}

func TestExecute_UpdateField(t *testing.T) {
	store := &mocks.MockCRMStore{}
	store.On("UpdateField", mock.Anything, "tenant-1", &models.FieldParams{
		EntityID: "contact-9",
		Field:    "status",
		Value:    "qualificado",
	}).Return(nil)

	action, err := NewAction(&models.ActionConfig{
		Kind: models.ActionUpdateField,
		Field: &models.FieldParams{
			EntityID: "{{ .trigger.contact_id }}",
			Field:    "status",
			Value:    "qualificado",
		},
	}, store)
	require.NoError(t, err)

	result, err := action.Execute(context.Background(), testRun(), "key", slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "status", result.Output["field"])
	store.AssertExpectations(t)
}

func TestNewAction_RequiresStore(t *testing.T) {
	_, err := NewAction(&models.ActionConfig{Kind: models.ActionAddTag}, nil)
	assert.ErrorIs(t, err, ErrMissingStore)
}
