package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hookline/hookline/pkg/models"
	"github.com/hookline/hookline/pkg/persistence"
)

// ExecutionRepository handles execution-record database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func (r *ExecutionRepository) Save(ctx context.Context, record *models.ExecutionRecord) error {
	outcomes, err := json.Marshal(record.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal outcomes: %w", err)
	}

	warnings, err := json.Marshal(record.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT INTO executions (id, workflow_id, user_id, status, outcomes, error, warnings, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status
		  , outcomes = EXCLUDED.outcomes
		  , error = EXCLUDED.error
		  , warnings = EXCLUDED.warnings
		  , finished_at = EXCLUDED.finished_at
	`

	var finishedAt *time.Time
	if record.FinishedAt != nil {
		finishedAt = record.FinishedAt
	}

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.WorkflowID, record.UserID, string(record.Status),
		outcomes, record.Error, warnings, record.StartedAt, finishedAt)
	if err != nil {
		return fmt.Errorf("failed to save execution record %s: %w", record.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, user_id, status, outcomes, error, warnings, started_at, finished_at
		FROM executions
		WHERE id = $1
	`

	record, err := scanExecution(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to get execution record %s: %w", id, err)
	}

	return record, nil
}

func (r *ExecutionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.ExecutionRecord, error) {
	query := `
		SELECT id, workflow_id, user_id, status, outcomes, error, warnings, started_at, finished_at
		FROM executions
		WHERE workflow_id = $1
		ORDER BY started_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution records: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.ExecutionRecord, 0)

	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution record: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution records: %w", err)
	}

	return records, nil
}

func scanExecution(row rowScanner) (*models.ExecutionRecord, error) {
	var (
		record     models.ExecutionRecord
		status     string
		outcomes   []byte
		warnings   []byte
		finishedAt sql.NullTime
	)

	err := row.Scan(&record.ID, &record.WorkflowID, &record.UserID, &status,
		&outcomes, &record.Error, &warnings, &record.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	record.Status = models.RunStatus(status)

	if err := json.Unmarshal(outcomes, &record.Outcomes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
	}

	if err := json.Unmarshal(warnings, &record.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}

	if finishedAt.Valid {
		record.FinishedAt = &finishedAt.Time
	}

	return &record, nil
}
