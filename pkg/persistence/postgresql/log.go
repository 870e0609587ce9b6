package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fluxa-crm/fluxa/pkg/models"
)

// LogRepository handles the append-only node execution log.
type LogRepository struct {
	db *sql.DB
}

func (r *LogRepository) Append(ctx context.Context, row *models.WorkflowLog) error {
	return r.insert(ctx, r.db, row)
}

// ListByRun returns all log rows for a run ordered by execution time.
func (r *LogRepository) ListByRun(ctx context.Context, runID string) ([]*models.WorkflowLog, error) {
	query := `
		SELECT
			id
		  , run_id
		  , node_id
		  , node_kind
		  , attempt
		  , status
		  , input
		  , output
		  , note
		  , tokens_used
		  , cost
		  , duration_ms
		  , error_message
		  , executed_at
		FROM workflow_logs
		WHERE run_id = $1
		ORDER BY executed_at
	`

	rows, err := r.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query logs: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	logs := make([]*models.WorkflowLog, 0)

	for rows.Next() {
		row, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}

		logs = append(logs, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating logs: %w", err)
	}

	return logs, nil
}

func (r *LogRepository) insert(ctx context.Context, db execer, row *models.WorkflowLog) error {
	inputJSON, err := json.Marshal(row.Input)
	if err != nil {
		return fmt.Errorf("failed to marshal log input: %w", err)
	}

	outputJSON, err := json.Marshal(row.Output)
	if err != nil {
		return fmt.Errorf("failed to marshal log output: %w", err)
	}

	query := `
		INSERT INTO workflow_logs (id, run_id, node_id, node_kind, attempt, status, input, output, note, tokens_used, cost, duration_ms, error_message, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = db.ExecContext(ctx, query,
		row.ID,
		row.RunID,
		row.NodeID,
		row.NodeKind,
		row.Attempt,
		row.Status,
		inputJSON,
		outputJSON,
		row.Note,
		row.TokensUsed,
		row.Cost,
		row.Duration.Milliseconds(),
		row.ErrorMessage,
		row.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}

	return nil
}

func scanLog(scanner interface {
	Scan(dest ...any) error
}) (*models.WorkflowLog, error) {
	var (
		row                    models.WorkflowLog
		inputJSON, outputJSON  []byte
		durationMS             int64
	)

	err := scanner.Scan(
		&row.ID,
		&row.RunID,
		&row.NodeID,
		&row.NodeKind,
		&row.Attempt,
		&row.Status,
		&inputJSON,
		&outputJSON,
		&row.Note,
		&row.TokensUsed,
		&row.Cost,
		&durationMS,
		&row.ErrorMessage,
		&row.ExecutedAt,
	)
	if err != nil {
		return nil, err
	}

	row.Duration = time.Duration(durationMS) * time.Millisecond

	if inputJSON != nil {
		if err := json.Unmarshal(inputJSON, &row.Input); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log input: %w", err)
		}
	}

	if outputJSON != nil {
		if err := json.Unmarshal(outputJSON, &row.Output); err != nil {
			return nil, fmt.Errorf("failed to unmarshal log output: %w", err)
		}
	}

	return &row, nil
}
