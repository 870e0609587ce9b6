package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestWorkflowRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	workflow := &models.Workflow{
		ID:        "wf-1",
		TenantID:  "tenant-1",
		Name:      "welcome flow",
		Status:    models.WorkflowStatusDraft,
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.Workflows().Save(ctx, workflow))

	loaded, err := p.Workflows().GetByID(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "welcome flow", loaded.Name)

	_, err = p.Workflows().GetByID(ctx, "missing")
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestListPublishedFiltersDrafts(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.Workflows().Save(ctx, &models.Workflow{
		ID: "draft", TenantID: "t", Name: "draft flow", Status: models.WorkflowStatusDraft,
	}))
	require.NoError(t, p.Workflows().Save(ctx, &models.Workflow{
		ID: "live", TenantID: "t", Name: "live flow", Status: models.WorkflowStatusPublished,
	}))

	published, err := p.Workflows().ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, "live", published[0].ID)
}

func TestSnapshotIsImmutableCopy(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	snapshot := &models.Workflow{
		ID:      "wf-1",
		Version: 2,
		Status:  models.WorkflowStatusPublished,
		Name:    "v2",
	}
	require.NoError(t, p.Workflows().SaveSnapshot(ctx, snapshot))

	loaded, err := p.Workflows().GetSnapshot(ctx, "wf-1", 2)
	require.NoError(t, err)
	assert.Equal(t, "v2", loaded.Name)

	_, err = p.Workflows().GetSnapshot(ctx, "wf-1", 3)
	assert.True(t, persistence.IsSnapshotNotFound(err))
}

func TestRunCreateAndAdvance(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	run := &models.WorkflowRun{
		ID:         "run-1",
		WorkflowID: "wf-1",
		Status:     models.RunStatusPending,
		StartedAt:  time.Now().UTC(),
	}
	require.NoError(t, p.Runs().Create(ctx, run))
	assert.ErrorIs(t, p.Runs().Create(ctx, run), persistence.ErrRunAlreadyExists)

	run.Status = models.RunStatusRunning
	run.CurrentNodeID = "a"
	run.RecordOutput("a", map[string]any{"sent": true})

	logRow := &models.WorkflowLog{
		ID:         "log-1",
		RunID:      "run-1",
		NodeID:     "a",
		NodeKind:   models.NodeKindAction,
		Attempt:    1,
		Status:     models.LogStatusSuccess,
		ExecutedAt: time.Now().UTC(),
	}
	require.NoError(t, p.Runs().Advance(ctx, run, logRow))

	loaded, err := p.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, loaded.Status)
	assert.Equal(t, "a", loaded.CurrentNodeID)

	rows, err := p.Logs().ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.LogStatusSuccess, rows[0].Status)
}

func TestLogOrderingByExecutedAt(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, offset := range []time.Duration{2 * time.Second, 0, time.Second} {
		require.NoError(t, p.Logs().Append(ctx, &models.WorkflowLog{
			ID:         string(rune('a' + i)),
			RunID:      "run-1",
			NodeID:     string(rune('a' + i)),
			Attempt:    1,
			ExecutedAt: base.Add(offset),
		}))
	}

	rows, err := p.Logs().ListByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].ExecutedAt.Before(rows[1].ExecutedAt))
	assert.True(t, rows[1].ExecutedAt.Before(rows[2].ExecutedAt))
}

func TestListDue(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.NoError(t, p.Runs().Create(ctx, &models.WorkflowRun{
		ID: "due", Status: models.RunStatusWaiting, NotBefore: &past,
	}))
	require.NoError(t, p.Runs().Create(ctx, &models.WorkflowRun{
		ID: "not-yet", Status: models.RunStatusWaiting, NotBefore: &future,
	}))
	require.NoError(t, p.Runs().Create(ctx, &models.WorkflowRun{
		ID: "active", Status: models.RunStatusRunning,
	}))

	due, err := p.Runs().ListDue(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestRequestCancel(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.Runs().Create(ctx, &models.WorkflowRun{
		ID: "run-1", Status: models.RunStatusRunning,
	}))
	require.NoError(t, p.Runs().RequestCancel(ctx, "run-1"))

	run, err := p.Runs().GetByID(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, run.CancelRequested)

	assert.True(t, persistence.IsRunNotFound(p.Runs().RequestCancel(ctx, "missing")))
}
