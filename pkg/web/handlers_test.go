package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/mocks"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence/file"
	"github.com/fluxa-crm/fluxa/pkg/registry"
	"github.com/fluxa-crm/fluxa/pkg/workflow"
)

type harness struct {
	app         *fiber.App
	persistence *file.Persistence
	bus         *mocks.MockEventBus
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		persistence: file.NewPersistence(t.TempDir()),
		bus:         &mocks.MockEventBus{},
	}

	h.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	reg := registry.NewDefaultRegistry(slog.Default(), registry.Gateways{
		Messaging: &mocks.MockMessagingGateway{},
		Email:     &mocks.MockEmailGateway{},
		CRM:       &mocks.MockCRMStore{},
		AI:        &mocks.MockAIClient{},
	})

	workflowService := workflow.NewService(h.persistence, slog.Default())
	publishingService := workflow.NewPublishingService(h.persistence, workflow.NewValidator(reg))

	handlers := NewAPIHandlers(workflowService, publishingService, h.persistence, h.bus, reg,
		validator.New(validator.WithRequiredStructEnabled()))
	h.app = NewApp(handlers)

	return h
}

func (h *harness) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var target T

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&target))
	require.NoError(t, resp.Body.Close())

	return target
}

func validGraph() *models.Graph {
	return &models.Graph{
		Nodes: []*models.Node{
			{ID: "start", Kind: models.NodeKindTrigger},
			{ID: "greet", Kind: models.NodeKindAction, Config: map[string]any{
				"action": "send_message", "contactId": "{{ .trigger.contact_id }}", "content": "Olá!",
			}},
		},
		Edges: []*models.Edge{{From: "start", To: "greet", Branch: models.BranchNext}},
	}
}

func createWorkflow(t *testing.T, h *harness) models.Workflow {
	resp := h.request(t, http.MethodPost, "/workflows/", CreateWorkflowRequest{
		Name:          "boas-vindas",
		TenantID:      "tenant-1",
		Graph:         validGraph(),
		TriggerConfig: &models.TriggerConfig{TriggerType: models.TriggerTypeKeyword, Keyword: "oi"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	return decode[models.Workflow](t, resp)
}

func TestCreateWorkflow(t *testing.T) {
	h := newHarness(t)

	created := createWorkflow(t, h)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.WorkflowStatusDraft, created.Status)
	assert.Equal(t, 0, created.Version)
}

func TestCreateWorkflow_RejectsMissingFields(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodPost, "/workflows/", CreateWorkflowRequest{Name: "ab"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWorkflow_NotFound(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodGet, "/workflows/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublishWorkflow(t *testing.T) {
	h := newHarness(t)

	created := createWorkflow(t, h)

	resp := h.request(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	published := decode[models.Workflow](t, resp)
	assert.Equal(t, models.WorkflowStatusPublished, published.Status)
	assert.Equal(t, 1, published.Version)
}

func TestPublishWorkflow_InvalidGraphListsNodeErrors(t *testing.T) {
	h := newHarness(t)

	created := createWorkflow(t, h)

	graph := validGraph()
	graph.Edges = append(graph.Edges, &models.Edge{From: "greet", To: "ghost", Branch: models.BranchNext})
	resp := h.request(t, http.MethodPatch, "/workflows/"+created.ID, UpdateWorkflowRequest{Graph: graph})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.request(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	problem := decode[map[string]any](t, resp)
	issues, ok := problem["errors"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, issues)

	first := issues[0].(map[string]any)
	assert.Contains(t, first["reason"], "unknown node")
}

func TestDeleteWorkflow_PublishedConflicts(t *testing.T) {
	h := newHarness(t)

	created := createWorkflow(t, h)
	resp := h.request(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.request(t, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.request(t, http.MethodPost, "/workflows/"+created.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.request(t, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestTriggerWorkflow_PublishesManualEvent(t *testing.T) {
	h := newHarness(t)

	created := createWorkflow(t, h)
	resp := h.request(t, http.MethodPost, "/workflows/"+created.ID+"/publish", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = h.request(t, http.MethodPost, "/workflows/"+created.ID+"/trigger", TriggerWorkflowRequest{
		TenantID: "tenant-1",
		Payload:  map[string]any{"contact_id": "c-1"},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Len(t, h.bus.Calls, 1)
	event := h.bus.Calls[0].Arguments.Get(2).(events.TriggerEventReceived)
	assert.Equal(t, string(models.TriggerTypeManual), event.TriggerType)
	assert.Equal(t, created.ID, event.Payload["workflow_id"])
	assert.Equal(t, "c-1", event.Payload["contact_id"])
}

func TestTriggerWorkflow_DraftConflicts(t *testing.T) {
	h := newHarness(t)

	created := createWorkflow(t, h)

	resp := h.request(t, http.MethodPost, "/workflows/"+created.ID+"/trigger", TriggerWorkflowRequest{
		TenantID: "tenant-1",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetRun_MapsWaitingToRunning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	notBefore := time.Now().UTC().Add(time.Hour)
	run := &models.WorkflowRun{
		ID:              "run-1",
		WorkflowID:      "wf-1",
		WorkflowVersion: 1,
		TenantID:        "tenant-1",
		Status:          models.RunStatusWaiting,
		CurrentNodeID:   "bye",
		Attempt:         1,
		NotBefore:       &notBefore,
		StartedAt:       time.Now().UTC(),
	}
	require.NoError(t, h.persistence.Runs().Create(ctx, run))

	resp := h.request(t, http.MethodGet, "/runs/run-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[RunResponse](t, resp)
	assert.Equal(t, "running", body.Status)
}

func TestCancelRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	run := &models.WorkflowRun{
		ID:              "run-1",
		WorkflowID:      "wf-1",
		WorkflowVersion: 1,
		TenantID:        "tenant-1",
		Status:          models.RunStatusRunning,
		CurrentNodeID:   "greet",
		Attempt:         1,
		StartedAt:       time.Now().UTC(),
	}
	require.NoError(t, h.persistence.Runs().Create(ctx, run))

	resp := h.request(t, http.MethodPost, "/runs/run-1/cancel", nil)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	stored, err := h.persistence.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, stored.CancelRequested)

	resp = h.request(t, http.MethodPost, "/runs/missing/cancel", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetActions_ListsSchemas(t *testing.T) {
	h := newHarness(t)

	resp := h.request(t, http.MethodGet, "/actions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string][]map[string]any](t, resp)
	assert.Len(t, body["actions"], len(models.ActionKinds))
}
