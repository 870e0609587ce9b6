// Package dispatcher turns inbound trigger events into workflow runs. It is
// the only component that creates runs; admission control (rate limiting)
// happens here, before any node executes.
package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fluxa-crm/fluxa/pkg/eventbus"
	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
	"github.com/fluxa-crm/fluxa/pkg/ratelimit"
)

type Dispatcher struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	limiter     ratelimit.Limiter
	logger      *slog.Logger
}

func NewDispatcher(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	limiter ratelimit.Limiter,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		id:          id,
		persistence: persistence,
		eventBus:    eventBus,
		limiter:     limiter,
		logger:      logger.With("module", "dispatcher", "dispatcher_id", id),
	}
}

// Start registers the trigger handler and blocks consuming events until the
// context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	err := d.eventBus.Handle(events.TriggerEventReceivedEvent, func(ctx context.Context, event any) error {
		received, ok := event.(*events.TriggerEventReceived)
		if !ok {
			return fmt.Errorf("unexpected event payload %T", event)
		}

		return d.Dispatch(ctx, &models.TriggerEvent{
			Type:     models.TriggerType(received.TriggerType),
			TenantID: received.TenantID,
			Payload:  received.Payload,
		})
	})
	if err != nil {
		return fmt.Errorf("failed to register trigger handler: %w", err)
	}

	d.logger.InfoContext(ctx, "Dispatcher started")

	if err := d.eventBus.Subscribe(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to trigger events: %w", err)
	}

	<-ctx.Done()

	return nil
}

// Dispatch matches one inbound event against every published workflow and
// admits a run per match. A matching failure on one workflow does not stop
// the others.
func (d *Dispatcher) Dispatch(ctx context.Context, trigger *models.TriggerEvent) error {
	workflows, err := d.persistence.Workflows().ListPublished(ctx)
	if err != nil {
		return fmt.Errorf("failed to list published workflows: %w", err)
	}

	for _, wf := range workflows {
		if !matches(wf, trigger) {
			continue
		}

		if err := d.admit(ctx, wf, trigger); err != nil {
			d.logger.ErrorContext(ctx, "Failed to admit run",
				"workflow_id", wf.ID, "trigger_type", trigger.Type, "error", err)
		}
	}

	return nil
}

// matches applies the trigger routing rules. Message events fan out to every
// workflow of the tenant listening for them; schedule and manual events
// target one workflow by id.
func matches(wf *models.Workflow, trigger *models.TriggerEvent) bool {
	config := wf.TriggerConfig
	if config == nil {
		return false
	}

	switch config.TriggerType {
	case models.TriggerTypeMessageReceived:
		return trigger.Type == models.TriggerTypeMessageReceived && wf.TenantID == trigger.TenantID
	case models.TriggerTypeKeyword:
		// Keyword workflows accept both keyword-typed events and raw
		// message_received traffic carrying the keyword.
		if trigger.Type != models.TriggerTypeKeyword && trigger.Type != models.TriggerTypeMessageReceived {
			return false
		}

		if wf.TenantID != trigger.TenantID {
			return false
		}

		return strings.Contains(strings.ToLower(trigger.Text()), strings.ToLower(config.Keyword))
	case models.TriggerTypeSchedule:
		return trigger.Type == models.TriggerTypeSchedule && trigger.WorkflowID() == wf.ID
	case models.TriggerTypeManual:
		return trigger.Type == models.TriggerTypeManual && trigger.WorkflowID() == wf.ID
	default:
		return false
	}
}

func (d *Dispatcher) admit(ctx context.Context, wf *models.Workflow, trigger *models.TriggerEvent) error {
	logger := d.logger.With("workflow_id", wf.ID, "workflow_version", wf.Version)

	graph, err := models.Compile(wf.Graph)
	if err != nil {
		return fmt.Errorf("failed to compile workflow graph: %w", err)
	}

	firstNode, ok := graph.Successor(graph.TriggerNode.ID)
	if !ok {
		logger.WarnContext(ctx, "Workflow trigger has no successor, nothing to run")

		return nil
	}

	now := time.Now().UTC()

	run := &models.WorkflowRun{
		ID:              uuid.Must(uuid.NewV7()).String(),
		WorkflowID:      wf.ID,
		WorkflowVersion: wf.Version,
		TenantID:        wf.TenantID,
		Status:          models.RunStatusPending,
		TriggerData:     trigger.Payload,
		CurrentNodeID:   firstNode,
		Attempt:         1,
		StartedAt:       now,
	}

	if wf.RateLimit != nil && d.limiter != nil {
		admission, err := d.limiter.Admit(ctx, wf.ID, wf.RateLimit, now)
		if err != nil {
			return fmt.Errorf("failed to check workflow rate limit: %w", err)
		}

		switch admission.Decision {
		case ratelimit.DecisionRejected:
			logger.WarnContext(ctx, "Run dropped by workflow rate limit")

			return nil
		case ratelimit.DecisionDeferred:
			run.NotBefore = &admission.NextEligible

			if err := d.persistence.Runs().Create(ctx, run); err != nil {
				return fmt.Errorf("failed to create deferred run: %w", err)
			}

			logger.InfoContext(ctx, "Run deferred by workflow rate limit",
				"run_id", run.ID, "not_before", admission.NextEligible)

			return d.publishCreated(ctx, run)
		case ratelimit.DecisionAllowed:
		}
	}

	if err := d.persistence.Runs().Create(ctx, run); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	logger.InfoContext(ctx, "Run admitted", "run_id", run.ID, "first_node", firstNode)

	if err := d.publishCreated(ctx, run); err != nil {
		return err
	}

	step := events.RunStepAvailable{
		BaseEvent: d.baseEvent(events.RunStepAvailableEvent, run.ID),
		NodeID:    firstNode,
		Attempt:   1,
	}

	if err := d.eventBus.Publish(ctx, run.ID, step); err != nil {
		return fmt.Errorf("failed to publish first step: %w", err)
	}

	return nil
}

func (d *Dispatcher) publishCreated(ctx context.Context, run *models.WorkflowRun) error {
	created := events.RunCreated{
		BaseEvent:       d.baseEvent(events.RunCreatedEvent, run.ID),
		WorkflowID:      run.WorkflowID,
		WorkflowVersion: run.WorkflowVersion,
		TenantID:        run.TenantID,
	}

	if err := d.eventBus.Publish(ctx, run.ID, created); err != nil {
		return fmt.Errorf("failed to publish run creation: %w", err)
	}

	return nil
}

func (d *Dispatcher) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, runID)
	base.WorkerID = d.id

	return base
}
