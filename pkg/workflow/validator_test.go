package workflow

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/mocks"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/registry"
)

func newTestValidator() *Validator {
	reg := registry.NewDefaultRegistry(slog.Default(), registry.Gateways{
		Messaging: &mocks.MockMessagingGateway{},
		Email:     &mocks.MockEmailGateway{},
		CRM:       &mocks.MockCRMStore{},
		AI:        &mocks.MockAIClient{},
	})

	return NewValidator(reg)
}

func validWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "boas-vindas",
		Status:   models.WorkflowStatusDraft,
		TriggerConfig: &models.TriggerConfig{
			TriggerType: models.TriggerTypeKeyword,
			Keyword:     "oi",
		},
		Graph: &models.Graph{
			Nodes: []*models.Node{
				{ID: "start", Kind: models.NodeKindTrigger},
				{ID: "greet", Kind: models.NodeKindAction, Config: map[string]any{
					"action": "send_message", "contactId": "{{ .trigger.contact_id }}", "content": "Olá!",
				}},
				{ID: "check", Kind: models.NodeKindCondition, Config: map[string]any{
					"field": "trigger.intent", "operator": "equals", "value": "vendas",
				}},
				{ID: "tag", Kind: models.NodeKindAction, Config: map[string]any{
					"action": "add_tag", "entityId": "{{ .trigger.contact_id }}", "tag": "vendas",
				}},
				{ID: "bye", Kind: models.NodeKindAction, Config: map[string]any{
					"action": "send_message", "contactId": "{{ .trigger.contact_id }}", "content": "Até logo!",
				}},
			},
			Edges: []*models.Edge{
				{From: "start", To: "greet", Branch: models.BranchNext},
				{From: "greet", To: "check", Branch: models.BranchNext},
				{From: "check", To: "tag", Branch: models.BranchTrue},
				{From: "check", To: "bye", Branch: models.BranchFalse},
			},
		},
	}
}

func TestValidate_ValidWorkflow(t *testing.T) {
	v := newTestValidator()

	assert.Nil(t, v.Validate(validWorkflow()))
}

func TestValidate_EmptyGraph(t *testing.T) {
	v := newTestValidator()

	errs := v.Validate(&models.Workflow{Graph: &models.Graph{}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Reason, "no nodes")
}

func TestValidate_MissingTrigger(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.Graph.Nodes = wf.Graph.Nodes[1:]
	wf.Graph.Edges = wf.Graph.Edges[1:]

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "no trigger node")
}

func TestValidate_TwoTriggers(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.Graph.Nodes = append(wf.Graph.Nodes, &models.Node{ID: "start2", Kind: models.NodeKindTrigger})

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "expected exactly one")
}

func TestValidate_CycleDetected(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.Graph.Edges = append(wf.Graph.Edges, &models.Edge{From: "tag", To: "greet", Branch: models.BranchNext})

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "cycle")
}

func TestValidate_ConditionEdgeArity(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	// Drop the false edge; "bye" also becomes unreachable
	wf.Graph.Edges = wf.Graph.Edges[:3]

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "exactly one true edge and one false edge")
	assert.Contains(t, errs.Error(), "not reachable")
}

func TestValidate_BranchEdgeOnActionNode(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.Graph.Edges[1].Branch = models.BranchTrue

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "only valid on condition nodes")
}

func TestValidate_UnknownEdgeTarget(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.Graph.Edges = append(wf.Graph.Edges, &models.Edge{From: "tag", To: "ghost", Branch: models.BranchNext})

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs.Error(), "unknown node 'ghost'")
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.TriggerConfig = &models.TriggerConfig{TriggerType: models.TriggerTypeSchedule}
	wf.Graph.Nodes[1].Config = map[string]any{"action": "send_message"}
	wf.Graph.Edges = append(wf.Graph.Edges, &models.Edge{From: "tag", To: "ghost", Branch: models.BranchNext})

	errs := v.Validate(wf)
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestValidate_ActionSchemaViolation(t *testing.T) {
	v := newTestValidator()

	wf := validWorkflow()
	wf.Graph.Nodes[3].Config = map[string]any{"action": "add_tag", "entityId": "c", "tag": ""}

	errs := v.Validate(wf)
	require.NotEmpty(t, errs)
	assert.Equal(t, "tag", errs[0].NodeID)
}
