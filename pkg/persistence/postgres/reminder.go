package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
)

// ReminderRepository handles scheduled session reminder database operations.
type ReminderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewReminderRepository creates a new reminder repository.
func NewReminderRepository(db *sql.DB, logger *slog.Logger) *ReminderRepository {
	return &ReminderRepository{db: db, logger: logger}
}

const reminderColumns = `
			id
		  , session_id
		  , workflow_id
		  , organization_id
		  , reminder_type
		  , scheduled_for
		  , status
		  , error_message
		  , processed_at
		  , created_at
`

// Due returns pending reminders scheduled at or before the given time.
func (r *ReminderRepository) Due(ctx context.Context, before time.Time) ([]*models.ScheduledSessionReminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM scheduled_session_reminders
		WHERE status = 'pending' AND scheduled_for <= $1
		ORDER BY scheduled_for
	`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	reminders := make([]*models.ScheduledSessionReminder, 0)

	for rows.Next() {
		reminder, err := r.scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}

		reminders = append(reminders, reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}

	return reminders, nil
}

// Claim flips a reminder from pending to sent. The conditional update is the
// claim: a zero row count means another processor run got there first.
func (r *ReminderRepository) Claim(ctx context.Context, id string, processedAt time.Time) (bool, error) {
	query := `
		UPDATE scheduled_session_reminders
		SET status = 'sent', processed_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id, processedAt)
	if err != nil {
		return false, fmt.Errorf("failed to claim reminder: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check claimed rows: %w", err)
	}

	return affected > 0, nil
}

// MarkFailed records a dispatch failure on a reminder.
func (r *ReminderRepository) MarkFailed(ctx context.Context, id string, message string, processedAt time.Time) error {
	query := `
		UPDATE scheduled_session_reminders
		SET status = 'failed', error_message = $2, processed_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, message, processedAt)
	if err != nil {
		return fmt.Errorf("failed to mark reminder failed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrReminderNotFound
	}

	return nil
}

// Save upserts a reminder row.
func (r *ReminderRepository) Save(ctx context.Context, reminder *models.ScheduledSessionReminder) error {
	if reminder.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate reminder ID: %w", err)
		}

		reminder.ID = id.String()
	}

	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scheduled_session_reminders (id, session_id, workflow_id,
			organization_id, reminder_type, scheduled_for, status, error_message,
			processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			scheduled_for = EXCLUDED.scheduled_for,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			processed_at = EXCLUDED.processed_at
	`

	_, err := r.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.SessionID,
		reminder.WorkflowID,
		reminder.OrganizationID,
		reminder.ReminderType,
		reminder.ScheduledFor,
		reminder.Status,
		nullableString(reminder.ErrorMessage),
		nullableTime(reminder.ProcessedAt),
		reminder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save reminder: %w", err)
	}

	return nil
}

// Schedule invokes the schedule_session_reminders database function.
func (r *ReminderRepository) Schedule(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, "SELECT schedule_session_reminders($1)", sessionID)
	if err != nil {
		return fmt.Errorf("failed to schedule session reminders: %w", err)
	}

	return nil
}

// Cleanup invokes the cleanup_old_session_reminders database function and
// returns the number of deleted rows.
func (r *ReminderRepository) Cleanup(ctx context.Context) (int, error) {
	var removed int

	err := r.db.QueryRowContext(ctx, "SELECT cleanup_old_session_reminders()").Scan(&removed)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up old reminders: %w", err)
	}

	return removed, nil
}

func (r *ReminderRepository) scanReminder(row rowScanner) (*models.ScheduledSessionReminder, error) {
	var (
		reminder     models.ScheduledSessionReminder
		errorMessage sql.NullString
		processedAt  sql.NullTime
	)

	err := row.Scan(
		&reminder.ID,
		&reminder.SessionID,
		&reminder.WorkflowID,
		&reminder.OrganizationID,
		&reminder.ReminderType,
		&reminder.ScheduledFor,
		&reminder.Status,
		&errorMessage,
		&processedAt,
		&reminder.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrReminderNotFound
		}

		return nil, err
	}

	reminder.ErrorMessage = errorMessage.String

	if processedAt.Valid {
		reminder.ProcessedAt = &processedAt.Time
	}

	return &reminder, nil
}
