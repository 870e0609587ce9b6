// Package scheduler owns the runtime's clock. It re-admits parked runs once
// their NotBefore instant passes and fires cron schedules for published
// schedule-triggered workflows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/eventbus"
	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

type Scheduler struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	logger      *slog.Logger

	tick        time.Duration
	reloadEvery time.Duration
	schedules   map[string]*models.Schedule
	lastReload  time.Time
}

func NewScheduler(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	tick time.Duration,
) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}

	return &Scheduler{
		id:          id,
		persistence: persistence,
		eventBus:    eventBus,
		logger:      logger.With("module", "scheduler", "scheduler_id", id),
		tick:        tick,
		reloadEvery: time.Minute,
		schedules:   make(map[string]*models.Schedule),
	}
}

// Start runs the tick loop until the context is cancelled. Ticks are serial:
// a slow persistence round trip delays the next tick instead of stacking up.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.reloadSchedules(ctx); err != nil {
		return fmt.Errorf("failed to load schedules: %w", err)
	}

	s.logger.InfoContext(ctx, "Scheduler started", "tick", s.tick, "schedules", len(s.schedules))

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Tick(ctx, now.UTC())
		}
	}
}

// Tick performs one pass: fire due cron schedules, then re-admit due runs.
// Errors are logged, not returned; the next tick retries naturally.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if now.Sub(s.lastReload) >= s.reloadEvery {
		if err := s.reloadSchedules(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to reload schedules", "error", err)
		}
	}

	s.fireDueSchedules(ctx, now)
	s.readmitDueRuns(ctx, now)
}

// reloadSchedules rebuilds the cron table from the published workflows. A
// workflow that was archived or republished with a new expression takes
// effect on the next reload.
func (s *Scheduler) reloadSchedules(ctx context.Context) error {
	workflows, err := s.persistence.Workflows().ListPublished(ctx)
	if err != nil {
		return err
	}

	next := make(map[string]*models.Schedule, len(s.schedules))

	for _, wf := range workflows {
		config := wf.TriggerConfig
		if config == nil || config.TriggerType != models.TriggerTypeSchedule {
			continue
		}

		if existing, ok := s.schedules[wf.ID]; ok && existing.CronExpression == config.Cron {
			next[wf.ID] = existing

			continue
		}

		schedule, err := models.NewSchedule(wf.ID, wf.TenantID, config.Cron)
		if err != nil {
			s.logger.ErrorContext(ctx, "Skipping workflow with invalid cron expression",
				"workflow_id", wf.ID, "cron", config.Cron, "error", err)

			continue
		}

		next[wf.ID] = schedule
	}

	s.schedules = next
	s.lastReload = time.Now().UTC()

	return nil
}

func (s *Scheduler) fireDueSchedules(ctx context.Context, now time.Time) {
	for _, schedule := range s.schedules {
		if !schedule.IsDue(now) {
			continue
		}

		event := events.TriggerEventReceived{
			BaseEvent:   s.baseEvent(events.TriggerEventReceivedEvent, ""),
			TriggerType: string(models.TriggerTypeSchedule),
			TenantID:    schedule.TenantID,
			Payload: map[string]any{
				"workflow_id": schedule.WorkflowID,
				"fired_at":    now.Format(time.RFC3339),
			},
		}

		if err := s.eventBus.Publish(ctx, schedule.WorkflowID, event); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish schedule fire",
				"workflow_id", schedule.WorkflowID, "error", err)

			continue
		}

		if err := schedule.Fire(now); err != nil {
			s.logger.ErrorContext(ctx, "Failed to advance schedule",
				"workflow_id", schedule.WorkflowID, "error", err)
		}

		s.logger.InfoContext(ctx, "Schedule fired",
			"workflow_id", schedule.WorkflowID, "next_due_at", schedule.NextDueAt)
	}
}

// readmitDueRuns moves pending/waiting runs whose NotBefore instant passed
// back onto the step queue.
func (s *Scheduler) readmitDueRuns(ctx context.Context, now time.Time) {
	due, err := s.persistence.Runs().ListDue(ctx, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list due runs", "error", err)

		return
	}

	for _, run := range due {
		if err := s.readmit(ctx, run); err != nil {
			s.logger.ErrorContext(ctx, "Failed to re-admit run", "run_id", run.ID, "error", err)
		}
	}
}

func (s *Scheduler) readmit(ctx context.Context, run *models.WorkflowRun) error {
	run.Status = models.RunStatusRunning
	run.NotBefore = nil

	if err := s.persistence.Runs().Update(ctx, run); err != nil {
		return fmt.Errorf("failed to update re-admitted run: %w", err)
	}

	resumed := events.RunResumed{
		BaseEvent: s.baseEvent(events.RunResumedEvent, run.ID),
		NodeID:    run.CurrentNodeID,
	}

	if err := s.eventBus.Publish(ctx, run.ID, resumed); err != nil {
		return fmt.Errorf("failed to publish run resume: %w", err)
	}

	step := events.RunStepAvailable{
		BaseEvent: s.baseEvent(events.RunStepAvailableEvent, run.ID),
		NodeID:    run.CurrentNodeID,
		Attempt:   run.Attempt,
	}

	if err := s.eventBus.Publish(ctx, run.ID, step); err != nil {
		return fmt.Errorf("failed to publish resumed step: %w", err)
	}

	s.logger.InfoContext(ctx, "Run re-admitted",
		"run_id", run.ID, "node_id", run.CurrentNodeID, "attempt", run.Attempt)

	return nil
}

func (s *Scheduler) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	base := events.NewBaseEvent(eventType, runID)
	base.WorkerID = s.id

	return base
}
