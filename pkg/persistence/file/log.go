package file

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// LogRepository stores each run's log rows as one JSON array under logs/.
type LogRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *LogRepository) logPath(runID string) string {
	return filepath.Join(r.root, "logs", runID+".json")
}

func (r *LogRepository) Append(_ context.Context, row *models.WorkflowLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.append(row)
}

func (r *LogRepository) ListByRun(_ context.Context, runID string) ([]*models.WorkflowLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.loadRows(runID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].ExecutedAt.Before(rows[j].ExecutedAt)
	})

	return rows, nil
}

// append assumes the shared lock is already held (see RunRepository.Advance).
func (r *LogRepository) append(row *models.WorkflowLog) error {
	rows, err := r.loadRows(row.RunID)
	if err != nil {
		return err
	}

	rows = append(rows, row)

	return writeJSON(r.logPath(row.RunID), rows)
}

func (r *LogRepository) loadRows(runID string) ([]*models.WorkflowLog, error) {
	rows := make([]*models.WorkflowLog, 0)

	if _, err := readJSON(r.logPath(runID), &rows); err != nil {
		return nil, err
	}

	return rows, nil
}
