package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
)

// ExecutionRepository handles workflow execution database operations.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

const executionColumns = `
			id
		  , workflow_id
		  , trigger_entity_type
		  , trigger_entity_id
		  , status
		  , execution_log
		  , started_at
		  , completed_at
		  , error_message
		  , created_at
`

// Create inserts a new execution row.
func (r *ExecutionRepository) Create(ctx context.Context, execution *models.WorkflowExecution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	logJSON, err := json.Marshal(execution.ExecutionLog)
	if err != nil {
		return fmt.Errorf("failed to marshal execution log: %w", err)
	}

	query := `
		INSERT INTO workflow_executions (id, workflow_id, trigger_entity_type,
			trigger_entity_id, status, execution_log, started_at, completed_at,
			error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.WorkflowID,
		execution.TriggerEntityType,
		execution.TriggerEntityID,
		execution.Status,
		logJSON,
		nullableTime(execution.StartedAt),
		nullableTime(execution.CompletedAt),
		nullableString(execution.ErrorMessage),
		execution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution: %w", err)
	}

	return nil
}

// GetByID returns an execution by its ID.
func (r *ExecutionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	execution, err := r.scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionNotFound
		}

		return nil, fmt.Errorf("failed to scan execution: %w", err)
	}

	return execution, nil
}

// Update persists the mutable fields of an execution.
func (r *ExecutionRepository) Update(ctx context.Context, execution *models.WorkflowExecution) error {
	logJSON, err := json.Marshal(execution.ExecutionLog)
	if err != nil {
		return fmt.Errorf("failed to marshal execution log: %w", err)
	}

	query := `
		UPDATE workflow_executions SET
			status = $2,
			execution_log = $3,
			started_at = $4,
			completed_at = $5,
			error_message = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		execution.ID,
		execution.Status,
		logJSON,
		nullableTime(execution.StartedAt),
		nullableTime(execution.CompletedAt),
		nullableString(execution.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to update execution: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionNotFound
	}

	return nil
}

// Recent returns executions for a workflow and entity created at or after since.
func (r *ExecutionRepository) Recent(ctx context.Context, workflowID string, entityType models.EntityType, entityID string, since time.Time) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE workflow_id = $1
		  AND trigger_entity_type = $2
		  AND trigger_entity_id = $3
		  AND created_at >= $4
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID, entityType, entityID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent executions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := r.scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return executions, nil
}

func (r *ExecutionRepository) scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution    models.WorkflowExecution
		logJSON      []byte
		startedAt    sql.NullTime
		completedAt  sql.NullTime
		errorMessage sql.NullString
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.TriggerEntityType,
		&execution.TriggerEntityID,
		&execution.Status,
		&logJSON,
		&startedAt,
		&completedAt,
		&errorMessage,
		&execution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &execution.ExecutionLog); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution log: %w", err)
		}
	}

	if startedAt.Valid {
		execution.StartedAt = &startedAt.Time
	}

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	execution.ErrorMessage = errorMessage.String

	return &execution, nil
}
