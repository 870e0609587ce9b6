package file

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

// WorkflowRepository stores workflow definitions and published snapshots as
// JSON files under workflows/ and snapshots/.
type WorkflowRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *WorkflowRepository) workflowPath(id string) string {
	return filepath.Join(r.root, "workflows", id+".json")
}

func (r *WorkflowRepository) snapshotPath(id string, version int) string {
	return filepath.Join(r.root, "snapshots", fmt.Sprintf("%s-v%d.json", id, version))
}

func (r *WorkflowRepository) List(_ context.Context, tenantID string) ([]*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflows, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	if tenantID == "" {
		return workflows, nil
	}

	filtered := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.TenantID == tenantID {
			filtered = append(filtered, workflow)
		}
	}

	return filtered, nil
}

func (r *WorkflowRepository) ListPublished(_ context.Context) ([]*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflows, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	published := make([]*models.Workflow, 0, len(workflows))

	for _, workflow := range workflows {
		if workflow.IsPublished() {
			published = append(published, workflow)
		}
	}

	return published, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var workflow models.Workflow

	found, err := readJSON(r.workflowPath(id), &workflow)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrWorkflowNotFound
	}

	return &workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.workflowPath(workflow.ID), workflow)
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := removeFile(r.workflowPath(id)); err != nil {
		return err
	}

	return nil
}

func (r *WorkflowRepository) SaveSnapshot(_ context.Context, snapshot *models.Workflow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.snapshotPath(snapshot.ID, snapshot.Version), snapshot)
}

func (r *WorkflowRepository) GetSnapshot(_ context.Context, workflowID string, version int) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var snapshot models.Workflow

	found, err := readJSON(r.snapshotPath(workflowID, version), &snapshot)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrSnapshotNotFound
	}

	return &snapshot, nil
}

func (r *WorkflowRepository) loadAll() ([]*models.Workflow, error) {
	files, err := listJSON(filepath.Join(r.root, "workflows"))
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(files))

	for _, file := range files {
		var workflow models.Workflow

		found, err := readJSON(file, &workflow)
		if err != nil {
			return nil, err
		}

		if found {
			workflows = append(workflows, &workflow)
		}
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.Before(workflows[j].CreatedAt)
	})

	return workflows, nil
}
