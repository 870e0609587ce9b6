package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
	"github.com/fluxa-crm/fluxa/pkg/persistence"
)

// RunRepository stores runs as JSON files under runs/.
type RunRepository struct {
	root string
	mu   *sync.Mutex
	logs *LogRepository
}

func (r *RunRepository) runPath(id string) string {
	return filepath.Join(r.root, "runs", id+".json")
}

func (r *RunRepository) Create(_ context.Context, run *models.WorkflowRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.runPath(run.ID)); err == nil {
		return persistence.ErrRunAlreadyExists
	}

	return writeJSON(r.runPath(run.ID), run)
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.load(id)
}

func (r *RunRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	filtered := make([]*models.WorkflowRun, 0, len(runs))

	for _, run := range runs {
		if run.WorkflowID == workflowID {
			filtered = append(filtered, run)
		}
	}

	return filtered, nil
}

// Advance writes the run and appends the log row under one lock. File
// persistence cannot offer a real transaction; the shared mutex at least
// keeps the pair ordered and un-interleaved within a process.
func (r *RunRepository) Advance(_ context.Context, run *models.WorkflowRun, logRow *models.WorkflowLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := writeJSON(r.runPath(run.ID), run); err != nil {
		return err
	}

	if logRow != nil {
		return r.logs.append(logRow)
	}

	return nil
}

func (r *RunRepository) Update(_ context.Context, run *models.WorkflowRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeJSON(r.runPath(run.ID), run)
}

func (r *RunRepository) ListDue(_ context.Context, now time.Time) ([]*models.WorkflowRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	due := make([]*models.WorkflowRun, 0)

	for _, run := range runs {
		if run.IsTerminal() || run.NotBefore == nil {
			continue
		}

		if !run.NotBefore.After(now) {
			due = append(due, run)
		}
	}

	return due, nil
}

func (r *RunRepository) RequestCancel(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, err := r.load(id)
	if err != nil {
		return err
	}

	run.CancelRequested = true

	return writeJSON(r.runPath(id), run)
}

func (r *RunRepository) load(id string) (*models.WorkflowRun, error) {
	var run models.WorkflowRun

	found, err := readJSON(r.runPath(id), &run)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrRunNotFound
	}

	return &run, nil
}

func (r *RunRepository) loadAll() ([]*models.WorkflowRun, error) {
	files, err := listJSON(filepath.Join(r.root, "runs"))
	if err != nil {
		return nil, err
	}

	runs := make([]*models.WorkflowRun, 0, len(files))

	for _, file := range files {
		var run models.WorkflowRun

		found, err := readJSON(file, &run)
		if err != nil {
			return nil, err
		}

		if found {
			runs = append(runs, &run)
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})

	return runs, nil
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}

	return nil
}
