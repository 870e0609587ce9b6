// Package engine executes workflow runs one node at a time. Every node
// attempt is persisted together with the run mutation before the next step
// is dispatched, so a crashed worker never loses progress.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fluxa-crm/fluxa/pkg/condition"
	"github.com/fluxa-crm/fluxa/pkg/eventbus"
	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
	"github.com/fluxa-crm/fluxa/pkg/ratelimit"
	"github.com/fluxa-crm/fluxa/pkg/registry"
)

// Config tunes the engine's retry and timeout defaults.
type Config struct {
	WorkerID string

	// DefaultMaxAttempts caps retries for idempotent actions without an
	// explicit maxAttempts.
	DefaultMaxAttempts int

	// DefaultStepTimeout bounds a single action attempt.
	DefaultStepTimeout time.Duration

	// RetryBackoffBase is the first retry delay; it doubles per attempt.
	RetryBackoffBase time.Duration
}

func DefaultConfig(workerID string) Config {
	return Config{
		WorkerID:           workerID,
		DefaultMaxAttempts: 3,
		DefaultStepTimeout: 30 * time.Second,
		RetryBackoffBase:   30 * time.Second,
	}
}

type Engine struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	registry    *registry.Registry
	limiter     ratelimit.Limiter
	calendar    Calendar
	logger      *slog.Logger
	config      Config
}

func NewEngine(
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	reg *registry.Registry,
	limiter ratelimit.Limiter,
	calendar Calendar,
	logger *slog.Logger,
	config Config,
) *Engine {
	return &Engine{
		persistence: persistence,
		eventBus:    eventBus,
		registry:    reg,
		limiter:     limiter,
		calendar:    calendar,
		logger:      logger.With("module", "engine"),
		config:      config,
	}
}

// Step executes one node of a run. Stale and duplicate deliveries are
// detected against the run's persisted position and acknowledged without
// side effects.
func (e *Engine) Step(ctx context.Context, runID, nodeID string, attempt int) error {
	logger := e.logger.With("run_id", runID, "node_id", nodeID, "attempt", attempt)

	run, err := e.persistence.Runs().GetByID(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}

	if run.IsTerminal() {
		logger.InfoContext(ctx, "Ignoring step for finished run", "status", run.Status)

		return nil
	}

	if run.CurrentNodeID != nodeID || run.Attempt != attempt {
		logger.InfoContext(ctx, "Ignoring stale step delivery",
			"expected_node", run.CurrentNodeID, "expected_attempt", run.Attempt)

		return nil
	}

	if run.CancelRequested {
		return e.cancelRun(ctx, run, logger)
	}

	snapshot, err := e.persistence.Workflows().GetSnapshot(ctx, run.WorkflowID, run.WorkflowVersion)
	if err != nil {
		return fmt.Errorf("failed to load workflow snapshot: %w", err)
	}

	graph, err := models.Compile(snapshot.Graph)
	if err != nil {
		return e.failRun(ctx, run, e.logRow(run, nodeID, models.NodeKindAction, models.LogStatusFailed, err.Error()), logger)
	}

	node, ok := graph.Node(nodeID)
	if !ok {
		row := e.logRow(run, nodeID, models.NodeKindAction, models.LogStatusFailed, "node not present in workflow snapshot")

		return e.failRun(ctx, run, row, logger)
	}

	run.Status = models.RunStatusRunning
	run.NotBefore = nil

	switch node.Kind {
	case models.NodeKindAction:
		return e.stepAction(ctx, run, snapshot, graph, node, logger)
	case models.NodeKindCondition:
		return e.stepCondition(ctx, run, graph, node, logger)
	case models.NodeKindDelay:
		return e.stepDelay(ctx, run, graph, node, logger)
	default:
		row := e.logRow(run, nodeID, node.Kind, models.LogStatusFailed, fmt.Sprintf("node kind '%s' is not executable", node.Kind))

		return e.failRun(ctx, run, row, logger)
	}
}

func (e *Engine) stepAction(
	ctx context.Context,
	run *models.WorkflowRun,
	snapshot *models.Workflow,
	graph *models.CompiledGraph,
	node *models.CompiledNode,
	logger *slog.Logger,
) error {
	config := node.Action

	if config.RateLimited && e.limiter != nil && snapshot.RateLimit != nil {
		key := run.WorkflowID + ":" + node.ID

		admission, err := e.limiter.Admit(ctx, key, snapshot.RateLimit, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to check action rate limit: %w", err)
		}

		switch admission.Decision {
		case ratelimit.DecisionDeferred:
			row := e.logRow(run, node.ID, node.Kind, models.LogStatusScheduled, "")
			row.Note = "action deferred by rate limit"
			row.Output = map[string]any{"resume_at": admission.NextEligible.Format(time.RFC3339)}

			return e.park(ctx, run, admission.NextEligible, row, logger)
		case ratelimit.DecisionRejected:
			row := e.logRow(run, node.ID, node.Kind, models.LogStatusSkipped, "")
			row.Note = "action dropped by rate limit"

			return e.advanceNext(ctx, run, graph, node.ID, row, logger)
		case ratelimit.DecisionAllowed:
		}
	}

	row := e.logRow(run, node.ID, node.Kind, models.LogStatusSuccess, "")

	handler, err := e.registry.Create(config.Kind, config)
	if err != nil {
		row.Status = models.LogStatusFailed
		row.ErrorMessage = err.Error()

		return e.failRun(ctx, run, row, logger)
	}

	stepCtx, cancel := context.WithTimeout(ctx, config.Timeout(e.config.DefaultStepTimeout))
	defer cancel()

	start := time.Now()
	result, execErr := handler.Execute(stepCtx, run, row.AttemptKey(), logger)
	row.Duration = time.Since(start)

	if result != nil {
		row.Output = result.Output
		row.TokensUsed = result.TokensUsed
		row.Cost = result.Cost
	}

	if execErr == nil {
		run.RecordOutput(node.ID, row.Output)

		return e.advanceNext(ctx, run, graph, node.ID, row, logger)
	}

	logger.ErrorContext(ctx, "Action attempt failed", "error", execErr)

	maxAttempts := config.Attempts(e.config.DefaultMaxAttempts)

	if run.Attempt < maxAttempts {
		row.Status = models.LogStatusFailed
		row.ErrorMessage = execErr.Error()

		backoff := e.config.RetryBackoffBase << (run.Attempt - 1)
		run.Attempt++

		return e.park(ctx, run, time.Now().UTC().Add(backoff), row, logger)
	}

	if config.ContinueOnError {
		row.Status = models.LogStatusSkipped
		row.ErrorMessage = execErr.Error()
		row.Note = "continuing past failure"

		return e.advanceNext(ctx, run, graph, node.ID, row, logger)
	}

	row.Status = models.LogStatusFailed
	row.ErrorMessage = execErr.Error()

	return e.failRun(ctx, run, row, logger)
}

func (e *Engine) stepCondition(
	ctx context.Context,
	run *models.WorkflowRun,
	graph *models.CompiledGraph,
	node *models.CompiledNode,
	logger *slog.Logger,
) error {
	config := node.Condition

	// Fields prefixed with "trigger." or "nodes." address the full run
	// context; a bare field addresses the trigger payload directly.
	evalContext := map[string]any{
		"trigger": run.TriggerData,
		"nodes":   run.Context,
	}
	if _, found := condition.Lookup(config.Field, evalContext); !found {
		evalContext = run.TriggerData
	}

	result := condition.Evaluate(config.Field, config.Operator, config.Value, evalContext)

	row := e.logRow(run, node.ID, node.Kind, models.LogStatusSuccess, "")
	row.Note = result.Note
	row.Output = map[string]any{"result": result.Value}

	run.RecordOutput(node.ID, row.Output)

	branch := models.BranchFalse
	if result.Value {
		branch = models.BranchTrue
	}

	logger.InfoContext(ctx, "Condition evaluated", "result", result.Value, "branch", branch)

	target, ok := graph.BranchTarget(node.ID, branch)

	return e.advanceTo(ctx, run, target, ok, row, logger)
}

func (e *Engine) stepDelay(
	ctx context.Context,
	run *models.WorkflowRun,
	graph *models.CompiledGraph,
	node *models.CompiledNode,
	logger *slog.Logger,
) error {
	at, err := resumeAt(time.Now().UTC(), node.Delay, e.calendar)
	if err != nil {
		row := e.logRow(run, node.ID, node.Kind, models.LogStatusFailed, err.Error())

		return e.failRun(ctx, run, row, logger)
	}

	row := e.logRow(run, node.ID, node.Kind, models.LogStatusScheduled, "")
	row.Output = map[string]any{"resume_at": at.Format(time.RFC3339)}

	successor, ok := graph.Successor(node.ID)
	if !ok {
		// A trailing delay has nothing to wake up for
		return e.complete(ctx, run, row, logger)
	}

	run.CurrentNodeID = successor
	run.Attempt = 1

	logger.InfoContext(ctx, "Run parked on delay", "resume_at", at, "next_node", successor)

	return e.park(ctx, run, at, row, logger)
}

// advanceNext follows the single outgoing edge of the node.
func (e *Engine) advanceNext(
	ctx context.Context,
	run *models.WorkflowRun,
	graph *models.CompiledGraph,
	nodeID string,
	row *models.WorkflowLog,
	logger *slog.Logger,
) error {
	successor, ok := graph.Successor(nodeID)

	return e.advanceTo(ctx, run, successor, ok, row, logger)
}

// advanceTo persists the step outcome and dispatches the next node, or
// completes the run when there is none.
func (e *Engine) advanceTo(
	ctx context.Context,
	run *models.WorkflowRun,
	target string,
	found bool,
	row *models.WorkflowLog,
	logger *slog.Logger,
) error {
	if !found {
		return e.complete(ctx, run, row, logger)
	}

	run.Status = models.RunStatusRunning
	run.CurrentNodeID = target
	run.Attempt = 1

	if err := e.persistence.Runs().Advance(ctx, run, row); err != nil {
		return fmt.Errorf("failed to persist step: %w", err)
	}

	step := events.RunStepAvailable{
		BaseEvent: e.baseEvent(events.RunStepAvailableEvent, run.ID),
		NodeID:    target,
		Attempt:   1,
	}

	if err := e.eventBus.Publish(ctx, run.ID, step); err != nil {
		return fmt.Errorf("failed to dispatch next step: %w", err)
	}

	return nil
}

// park persists the step outcome and leaves the run waiting for the
// scheduler to re-admit it at notBefore.
func (e *Engine) park(
	ctx context.Context,
	run *models.WorkflowRun,
	notBefore time.Time,
	row *models.WorkflowLog,
	logger *slog.Logger,
) error {
	run.Status = models.RunStatusWaiting
	run.NotBefore = &notBefore

	if err := e.persistence.Runs().Advance(ctx, run, row); err != nil {
		return fmt.Errorf("failed to park run: %w", err)
	}

	logger.InfoContext(ctx, "Run parked", "not_before", notBefore)

	return nil
}

func (e *Engine) complete(ctx context.Context, run *models.WorkflowRun, row *models.WorkflowLog, logger *slog.Logger) error {
	now := time.Now().UTC()
	run.Status = models.RunStatusCompleted
	run.CurrentNodeID = ""
	run.NotBefore = nil
	run.CompletedAt = &now
	run.Result = run.Context

	if err := e.persistence.Runs().Advance(ctx, run, row); err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	completed := events.RunCompleted{
		BaseEvent:  e.baseEvent(events.RunCompletedEvent, run.ID),
		Result:     run.Result,
		DurationMs: now.Sub(run.StartedAt).Milliseconds(),
	}

	if err := e.eventBus.Publish(ctx, run.ID, completed); err != nil {
		return fmt.Errorf("failed to publish run completion: %w", err)
	}

	logger.InfoContext(ctx, "Run completed")

	return nil
}

func (e *Engine) failRun(ctx context.Context, run *models.WorkflowRun, row *models.WorkflowLog, logger *slog.Logger) error {
	now := time.Now().UTC()
	run.Status = models.RunStatusFailed
	run.NotBefore = nil
	run.Error = row.ErrorMessage
	run.CompletedAt = &now

	if err := e.persistence.Runs().Advance(ctx, run, row); err != nil {
		return fmt.Errorf("failed to persist run failure: %w", err)
	}

	failed := events.RunFailed{
		BaseEvent:  e.baseEvent(events.RunFailedEvent, run.ID),
		NodeID:     row.NodeID,
		Error:      row.ErrorMessage,
		DurationMs: now.Sub(run.StartedAt).Milliseconds(),
	}

	if err := e.eventBus.Publish(ctx, run.ID, failed); err != nil {
		return fmt.Errorf("failed to publish run failure: %w", err)
	}

	logger.ErrorContext(ctx, "Run failed", "error", row.ErrorMessage)

	return nil
}

func (e *Engine) cancelRun(ctx context.Context, run *models.WorkflowRun, logger *slog.Logger) error {
	now := time.Now().UTC()
	run.Status = models.RunStatusCancelled
	run.NotBefore = nil
	run.CompletedAt = &now

	if err := e.persistence.Runs().Update(ctx, run); err != nil {
		return fmt.Errorf("failed to persist run cancellation: %w", err)
	}

	cancelled := events.RunCancelled{
		BaseEvent: e.baseEvent(events.RunCancelledEvent, run.ID),
		Reason:    "cancellation requested",
	}

	if err := e.eventBus.Publish(ctx, run.ID, cancelled); err != nil {
		return fmt.Errorf("failed to publish run cancellation: %w", err)
	}

	logger.InfoContext(ctx, "Run cancelled")

	return nil
}

func (e *Engine) logRow(run *models.WorkflowRun, nodeID string, kind models.NodeKind, status models.LogStatus, errorMessage string) *models.WorkflowLog {
	return &models.WorkflowLog{
		ID:           uuid.New().String(),
		RunID:        run.ID,
		NodeID:       nodeID,
		NodeKind:     kind,
		Attempt:      run.Attempt,
		Status:       status,
		ErrorMessage: errorMessage,
		ExecutedAt:   time.Now().UTC(),
	}
}

func (e *Engine) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, runID)
	base.WorkerID = e.config.WorkerID

	return base
}
