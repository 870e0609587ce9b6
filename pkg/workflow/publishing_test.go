package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence/file"
)

func newTestPublishing(t *testing.T) (*PublishingService, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	return NewPublishingService(p, newTestValidator()), p
}

func TestPublish_BumpsVersionAndSnapshots(t *testing.T) {
	service, p := newTestPublishing(t)
	ctx := context.Background()

	wf := validWorkflow()
	require.NoError(t, p.Workflows().Save(ctx, wf))

	published, err := service.Publish(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusPublished, published.Status)
	assert.Equal(t, 1, published.Version)
	require.NotNil(t, published.PublishedAt)

	snapshot, err := service.Snapshot(ctx, wf.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Version)

	// Publishing again creates version 2 and keeps version 1 intact
	published, err = service.Publish(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, published.Version)

	snapshot, err = service.Snapshot(ctx, wf.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Version)
}

func TestPublish_InvalidGraphReportsAllErrors(t *testing.T) {
	service, p := newTestPublishing(t)
	ctx := context.Background()

	wf := validWorkflow()
	wf.Graph.Nodes = append(wf.Graph.Nodes, &models.Node{ID: "start2", Kind: models.NodeKindTrigger})
	wf.Graph.Edges = append(wf.Graph.Edges, &models.Edge{From: "tag", To: "ghost", Branch: models.BranchNext})
	require.NoError(t, p.Workflows().Save(ctx, wf))

	_, err := service.Publish(ctx, wf.ID)
	require.Error(t, err)

	var errs ValidationErrors

	require.ErrorAs(t, err, &errs)
	assert.GreaterOrEqual(t, len(errs), 2)

	// The draft stays untouched
	stored, err := p.Workflows().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, stored.Status)
	assert.Equal(t, 0, stored.Version)
}

func TestPublish_ArchivedWorkflowRejected(t *testing.T) {
	service, p := newTestPublishing(t)
	ctx := context.Background()

	wf := validWorkflow()
	wf.Status = models.WorkflowStatusArchived
	require.NoError(t, p.Workflows().Save(ctx, wf))

	_, err := service.Publish(ctx, wf.ID)
	assert.ErrorIs(t, err, ErrWorkflowArchived)
}

func TestArchive_StopsMatching(t *testing.T) {
	service, p := newTestPublishing(t)
	ctx := context.Background()

	wf := validWorkflow()
	require.NoError(t, p.Workflows().Save(ctx, wf))

	_, err := service.Publish(ctx, wf.ID)
	require.NoError(t, err)

	archived, err := service.Archive(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusArchived, archived.Status)

	published, err := p.Workflows().ListPublished(ctx)
	require.NoError(t, err)
	assert.Empty(t, published)
}
