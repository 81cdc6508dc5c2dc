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

// WorkflowRepository handles workflow and workflow step database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
			id
		  , name
		  , trigger_type
		  , trigger_entity_type
		  , trigger_conditions
		  , is_active
		  , organization_id
		  , user_id
		  , created_at
		  , updated_at
`

// GetAll returns all workflows of an organization, newest first.
func (r *WorkflowRepository) GetAll(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer r.closeRows(ctx, rows)

	return r.collectWorkflows(rows)
}

// GetByID returns a workflow by its ID.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := r.scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkflowNotFound
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// GetActiveByTrigger returns the active workflows of an organization matching
// a trigger type.
func (r *WorkflowRepository) GetActiveByTrigger(ctx context.Context, organizationID string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE organization_id = $1 AND trigger_type = $2 AND is_active
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query active workflows: %w", err)
	}

	defer r.closeRows(ctx, rows)

	return r.collectWorkflows(rows)
}

// Save upserts a workflow.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	conditionsJSON, err := json.Marshal(workflow.TriggerConditions)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger conditions: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, trigger_type, trigger_entity_type,
			trigger_conditions, is_active, organization_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			trigger_type = EXCLUDED.trigger_type,
			trigger_entity_type = EXCLUDED.trigger_entity_type,
			trigger_conditions = EXCLUDED.trigger_conditions,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID,
		workflow.Name,
		workflow.TriggerType,
		workflow.TriggerEntityType,
		conditionsJSON,
		workflow.IsActive,
		workflow.OrganizationID,
		nullableString(workflow.UserID),
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Delete removes a workflow and its steps.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrWorkflowNotFound
	}

	return nil
}

// StepsByWorkflow returns the active steps of a workflow ordered by step_order.
func (r *WorkflowRepository) StepsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , step_order
		  , action_type
		  , action_config
		  , delay_minutes
		  , conditions
		  , is_active
		FROM workflow_steps
		WHERE workflow_id = $1 AND is_active
		ORDER BY step_order
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}

	defer r.closeRows(ctx, rows)

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		var (
			step           models.WorkflowStep
			configJSON     []byte
			conditionsJSON []byte
		)

		err := rows.Scan(
			&step.ID,
			&step.WorkflowID,
			&step.StepOrder,
			&step.ActionType,
			&configJSON,
			&step.DelayMinutes,
			&conditionsJSON,
			&step.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}

		if err := unmarshalJSONMap(configJSON, &step.ActionConfig); err != nil {
			return nil, fmt.Errorf("failed to unmarshal action config: %w", err)
		}

		if err := unmarshalJSONMap(conditionsJSON, &step.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal step conditions: %w", err)
		}

		steps = append(steps, &step)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow steps: %w", err)
	}

	return steps, nil
}

// SaveStep upserts a workflow step.
func (r *WorkflowRepository) SaveStep(ctx context.Context, step *models.WorkflowStep) error {
	if step.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate step ID: %w", err)
		}

		step.ID = id.String()
	}

	configJSON, err := json.Marshal(step.ActionConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal action config: %w", err)
	}

	conditionsJSON, err := json.Marshal(step.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal step conditions: %w", err)
	}

	query := `
		INSERT INTO workflow_steps (id, workflow_id, step_order, action_type,
			action_config, delay_minutes, conditions, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			step_order = EXCLUDED.step_order,
			action_type = EXCLUDED.action_type,
			action_config = EXCLUDED.action_config,
			delay_minutes = EXCLUDED.delay_minutes,
			conditions = EXCLUDED.conditions,
			is_active = EXCLUDED.is_active
	`

	_, err = r.db.ExecContext(ctx, query,
		step.ID,
		step.WorkflowID,
		step.StepOrder,
		step.ActionType,
		configJSON,
		step.DelayMinutes,
		conditionsJSON,
		step.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow step: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow       models.Workflow
		conditionsJSON []byte
		userID         sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.TriggerType,
		&workflow.TriggerEntityType,
		&conditionsJSON,
		&workflow.IsActive,
		&workflow.OrganizationID,
		&userID,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.UserID = userID.String

	if err := unmarshalJSONMap(conditionsJSON, &workflow.TriggerConditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger conditions: %w", err)
	}

	return &workflow, nil
}

func (r *WorkflowRepository) collectWorkflows(rows *sql.Rows) ([]*models.Workflow, error) {
	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func unmarshalJSONMap(data []byte, target *map[string]any) error {
	if len(data) == 0 {
		return nil
	}

	return json.Unmarshal(data, target)
}

func nullableString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullableTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *value, Valid: true}
}
