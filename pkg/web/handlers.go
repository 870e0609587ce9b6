package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/fluxa-crm/fluxa/pkg/eventbus"
	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
	"github.com/fluxa-crm/fluxa/pkg/registry"
	"github.com/fluxa-crm/fluxa/pkg/workflow"
)

type APIHandlers struct {
	workflowService   *workflow.Service
	publishingService *workflow.PublishingService
	persistence       persistence.Persistence
	eventBus          eventbus.EventBus
	registry          *registry.Registry
	validator         *validator.Validate
}

func NewAPIHandlers(
	workflowService *workflow.Service,
	publishingService *workflow.PublishingService,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
	validate *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workflowService:   workflowService,
		publishingService: publishingService,
		persistence:       persistence,
		eventBus:          eventBus,
		registry:          reg,
		validator:         validate,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	if err := h.workflowService.HealthCheck(c.Context()); err != nil {
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{
			"status":    "unhealthy",
			"error":     err.Error(),
			"timestamp": time.Now().UTC(),
		})
	}

	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	tenantID := c.Query("tenant_id")
	if tenantID == "" {
		return badRequest(c, "tenant_id query parameter is required")
	}

	workflows, err := h.workflowService.List(c.Context(), tenantID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"workflows": workflows})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	wf, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.workflowService.Create(c.Context(), &models.Workflow{
		Name:          req.Name,
		TenantID:      req.TenantID,
		Graph:         req.Graph,
		TriggerConfig: req.TriggerConfig,
		RateLimit:     req.RateLimit,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Graph != nil {
		existing.Graph = req.Graph
	}

	if req.TriggerConfig != nil {
		existing.TriggerConfig = req.TriggerConfig
	}

	if req.RateLimit != nil {
		existing.RateLimit = req.RateLimit
	}

	updated, err := h.workflowService.Update(c.Context(), existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	if err := h.workflowService.Delete(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) PublishWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	published, err := h.publishingService.Publish(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(published)
}

func (h *APIHandlers) ArchiveWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	archived, err := h.publishingService.Archive(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(archived)
}

// TriggerWorkflow publishes a manual trigger event. The dispatcher admits
// the run asynchronously; 202 means accepted, not started.
func (h *APIHandlers) TriggerWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	var req TriggerWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "invalid JSON body")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf, err := h.workflowService.Get(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !wf.IsPublished() {
		return conflict(c, "only published workflows can be triggered")
	}

	payload := map[string]any{"workflow_id": id}
	for key, value := range req.Payload {
		payload[key] = value
	}

	event := events.TriggerEventReceived{
		BaseEvent:   events.NewBaseEvent(events.TriggerEventReceivedEvent, ""),
		TriggerType: string(models.TriggerTypeManual),
		TenantID:    req.TenantID,
		Payload:     payload,
	}

	if err := h.eventBus.Publish(c.Context(), id, event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event_id":    event.ID,
		"workflow_id": id,
	})
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "workflow id is required")
	}

	runs, err := h.persistence.Runs().ListByWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"runs": toRunResponses(runs)})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "run id is required")
	}

	run, err := h.persistence.Runs().GetByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(toRunResponse(run))
}

func (h *APIHandlers) GetRunLogs(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "run id is required")
	}

	if _, err := h.persistence.Runs().GetByID(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	rows, err := h.persistence.Logs().ListByRun(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"logs": rows})
}

// CancelRun sets the cooperative cancellation flag. The engine honors it
// before the next node step; the node in flight finishes first.
func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "run id is required")
	}

	if err := h.persistence.Runs().RequestCancel(c.Context(), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"run_id": id, "cancel_requested": true})
}

// GetActions lists the registered action kinds with their config schemas,
// for workflow editors.
func (h *APIHandlers) GetActions(c fiber.Ctx) error {
	kinds := h.registry.Kinds()

	actions := make([]fiber.Map, 0, len(kinds))
	for _, kind := range kinds {
		actions = append(actions, fiber.Map{
			"kind":   kind,
			"schema": h.registry.Schema(kind),
		})
	}

	return c.JSON(fiber.Map{"actions": actions})
}
