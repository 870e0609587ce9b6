package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/events"
	"github.com/fluxa-crm/fluxa/pkg/mocks"
	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence/file"
)

type harness struct {
	scheduler   *Scheduler
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
	h.scheduler = NewScheduler("scheduler-test", h.persistence, h.bus, slog.Default(), time.Second)

	return h
}

func (h *harness) published(eventType events.EventType) []any {
	var matched []any

	for _, call := range h.bus.Calls {
		if call.Method != "Publish" {
			continue
		}

		if event, ok := call.Arguments.Get(2).(interface{ GetType() events.EventType }); ok && event.GetType() == eventType {
			matched = append(matched, call.Arguments.Get(2))
		}
	}

	return matched
}

func parkedRun(id string, notBefore time.Time) *models.WorkflowRun {
	return &models.WorkflowRun{
		ID:              id,
		WorkflowID:      "wf-1",
		WorkflowVersion: 1,
		TenantID:        "tenant-1",
		Status:          models.RunStatusWaiting,
		CurrentNodeID:   "bye",
		Attempt:         2,
		NotBefore:       &notBefore,
		StartedAt:       time.Now().UTC().Add(-time.Hour),
	}
}

func TestTick_ReadmitsDueRuns(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, h.persistence.Runs().Create(ctx, parkedRun("run-due", now.Add(-time.Minute))))
	require.NoError(t, h.persistence.Runs().Create(ctx, parkedRun("run-later", now.Add(time.Hour))))

	h.scheduler.Tick(ctx, now)

	due, err := h.persistence.Runs().GetByID(ctx, "run-due")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, due.Status)
	assert.Nil(t, due.NotBefore)

	later, err := h.persistence.Runs().GetByID(ctx, "run-later")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusWaiting, later.Status)
	require.NotNil(t, later.NotBefore)

	require.Len(t, h.published(events.RunResumedEvent), 1)

	steps := h.published(events.RunStepAvailableEvent)
	require.Len(t, steps, 1)
	step := steps[0].(events.RunStepAvailable)
	assert.Equal(t, "run-due", step.RunID)
	// The re-admitted step resumes at the persisted position
	assert.Equal(t, "bye", step.NodeID)
	assert.Equal(t, 2, step.Attempt)
}

func TestTick_ReadmissionIsIdempotentAcrossTicks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, h.persistence.Runs().Create(ctx, parkedRun("run-due", now.Add(-time.Minute))))

	h.scheduler.Tick(ctx, now)
	h.scheduler.Tick(ctx, now.Add(time.Second))

	// The first tick cleared NotBefore, so the second tick finds nothing
	assert.Len(t, h.published(events.RunStepAvailableEvent), 1)
}

func TestTick_FiresDueSchedule(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	wf := &models.Workflow{
		ID:       "wf-agenda",
		TenantID: "tenant-1",
		Name:     "resumo-diario",
		Status:   models.WorkflowStatusPublished,
		Version:  1,
		TriggerConfig: &models.TriggerConfig{
			TriggerType: models.TriggerTypeSchedule,
			Cron:        "* * * * *",
		},
		Graph: &models.Graph{
			Nodes: []*models.Node{{ID: "start", Kind: models.NodeKindTrigger}},
		},
	}
	require.NoError(t, h.persistence.Workflows().Save(ctx, wf))

	require.NoError(t, h.scheduler.reloadSchedules(ctx))

	// An every-minute schedule is due one minute from load
	h.scheduler.Tick(ctx, time.Now().UTC().Add(2*time.Minute))

	fired := h.published(events.TriggerEventReceivedEvent)
	require.Len(t, fired, 1)
	event := fired[0].(events.TriggerEventReceived)
	assert.Equal(t, string(models.TriggerTypeSchedule), event.TriggerType)
	assert.Equal(t, "tenant-1", event.TenantID)
	assert.Equal(t, "wf-agenda", event.Payload["workflow_id"])
}

func TestReloadSchedules_SkipsNonScheduleAndDrafts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	keyword := &models.Workflow{
		ID: "wf-kw", TenantID: "tenant-1", Name: "boas-vindas",
		Status:        models.WorkflowStatusPublished,
		TriggerConfig: &models.TriggerConfig{TriggerType: models.TriggerTypeKeyword, Keyword: "oi"},
	}
	draft := &models.Workflow{
		ID: "wf-draft", TenantID: "tenant-1", Name: "rascunho",
		Status:        models.WorkflowStatusDraft,
		TriggerConfig: &models.TriggerConfig{TriggerType: models.TriggerTypeSchedule, Cron: "0 9 * * *"},
	}
	require.NoError(t, h.persistence.Workflows().Save(ctx, keyword))
	require.NoError(t, h.persistence.Workflows().Save(ctx, draft))

	require.NoError(t, h.scheduler.reloadSchedules(ctx))
	assert.Empty(t, h.scheduler.schedules)
}
