package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

func TestRender_SimpleExpression(t *testing.T) {
	data := map[string]any{
		"name":   "Ana",
		"age":    30,
		"active": true,
	}

	result, err := Render("{{ .name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "Ana", result)

	result, err = Render("{{ .active }}", data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	// Numbers always come back as float
	result, err = Render("{{ .age }}", data)
	require.NoError(t, err)
	assert.Equal(t, 30.0, result)
}

func TestRender_JSONOutput(t *testing.T) {
	data := map[string]any{
		"contact": map[string]any{"name": "Bruno"},
	}

	result, err := Render(`{"greeting": "Olá, {{ .contact.name }}!"}`, data)
	require.NoError(t, err)

	resultMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Olá, Bruno!", resultMap["greeting"])
}

func TestRenderWithRun(t *testing.T) {
	run := &models.WorkflowRun{
		ID:         "run-1",
		WorkflowID: "wf-1",
		TriggerData: map[string]any{
			"text":       "oi",
			"contact_id": "contact-9",
		},
	}
	run.RecordOutput("classify", map[string]any{"intent": "vendas"})

	result, err := RenderWithRun("{{ .trigger.text }}", run)
	require.NoError(t, err)
	assert.Equal(t, "oi", result)

	result, err = RenderWithRun("{{ .nodes.classify.intent }}", run)
	require.NoError(t, err)
	assert.Equal(t, "vendas", result)
}

func TestRenderString_PassThrough(t *testing.T) {
	run := &models.WorkflowRun{ID: "run-1"}

	out, err := RenderString("plain text, no actions", run)
	require.NoError(t, err)
	assert.Equal(t, "plain text, no actions", out)
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{ .open", map[string]any{})
	require.Error(t, err)
}

func TestNeedsTemplating(t *testing.T) {
	assert.True(t, NeedsTemplating("hello {{ .name }}"))
	assert.False(t, NeedsTemplating("hello"))
}
