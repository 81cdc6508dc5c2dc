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

// EntityRepository reads and mutates sessions, leads, projects and the
// activity/notification rows workflow actions produce.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewEntityRepository creates a new entity repository.
func NewEntityRepository(db *sql.DB, logger *slog.Logger) *EntityRepository {
	return &EntityRepository{db: db, logger: logger}
}

// SessionByID returns a session row.
func (r *EntityRepository) SessionByID(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT
			id
		  , organization_id
		  , lead_id
		  , project_id
		  , name
		  , session_date
		  , session_time
		  , location
		  , notes
		  , status
		FROM sessions
		WHERE id = $1
	`

	var (
		session   models.Session
		leadID    sql.NullString
		projectID sql.NullString
		name      sql.NullString
		location  sql.NullString
		notes     sql.NullString
		status    sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.OrganizationID,
		&leadID,
		&projectID,
		&name,
		&session.SessionDate,
		&session.SessionTime,
		&location,
		&notes,
		&status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	session.LeadID = leadID.String
	session.ProjectID = projectID.String
	session.Name = name.String
	session.Location = location.String
	session.Notes = notes.String
	session.Status = status.String

	return &session, nil
}

// LeadByID returns a lead row.
func (r *EntityRepository) LeadByID(ctx context.Context, id string) (*models.Lead, error) {
	query := `
		SELECT
			id
		  , organization_id
		  , name
		  , email
		  , phone
		  , status_id
		  , assignee_id
		  , user_id
		FROM leads
		WHERE id = $1
	`

	var (
		lead       models.Lead
		email      sql.NullString
		phone      sql.NullString
		statusID   sql.NullString
		assigneeID sql.NullString
		userID     sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID,
		&lead.OrganizationID,
		&lead.Name,
		&email,
		&phone,
		&statusID,
		&assigneeID,
		&userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query lead: %w", err)
	}

	lead.Email = email.String
	lead.Phone = phone.String
	lead.StatusID = statusID.String
	lead.AssigneeID = assigneeID.String
	lead.UserID = userID.String

	return &lead, nil
}

// ProjectByID returns a project row.
func (r *EntityRepository) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	query := `
		SELECT
			id
		  , organization_id
		  , lead_id
		  , name
		  , status_id
		  , user_id
		FROM projects
		WHERE id = $1
	`

	var (
		project  models.Project
		leadID   sql.NullString
		statusID sql.NullString
		userID   sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID,
		&project.OrganizationID,
		&leadID,
		&project.Name,
		&statusID,
		&userID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrEntityNotFound
		}

		return nil, fmt.Errorf("failed to query project: %w", err)
	}

	project.LeadID = leadID.String
	project.StatusID = statusID.String
	project.UserID = userID.String

	return &project, nil
}

// LeadFieldValues returns a lead's custom field values keyed by field key.
func (r *EntityRepository) LeadFieldValues(ctx context.Context, leadID string) (map[string]string, error) {
	query := `SELECT field_key, value FROM lead_field_values WHERE lead_id = $1`

	rows, err := r.db.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lead field values: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	fields := make(map[string]string)

	for rows.Next() {
		var key, value string

		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan lead field value: %w", err)
		}

		fields[key] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lead field values: %w", err)
	}

	return fields, nil
}

// UpdateEntityStatus sets the status column appropriate for the entity type.
func (r *EntityRepository) UpdateEntityStatus(ctx context.Context, entityType models.EntityType, entityID, status string) error {
	var query string

	switch entityType {
	case models.EntitySession:
		query = "UPDATE sessions SET status = $2 WHERE id = $1"
	case models.EntityProject:
		query = "UPDATE projects SET status_id = $2 WHERE id = $1"
	case models.EntityLead:
		query = "UPDATE leads SET status_id = $2 WHERE id = $1"
	default:
		return fmt.Errorf("unsupported entity type %q: %w", entityType, persistence.ErrEntityNotFound)
	}

	result, err := r.db.ExecContext(ctx, query, entityID, status)
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", entityType, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}

	if affected == 0 {
		return persistence.ErrEntityNotFound
	}

	return nil
}

// InsertActivity inserts a timeline activity row.
func (r *EntityRepository) InsertActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate activity ID: %w", err)
		}

		activity.ID = id.String()
	}

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO activities (id, user_id, organization_id, type, content,
			reminder_date, reminder_time, project_id, lead_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.ExecContext(ctx, query,
		activity.ID,
		activity.UserID,
		activity.OrganizationID,
		activity.Type,
		activity.Content,
		nullableString(activity.ReminderDate),
		nullableString(activity.ReminderTime),
		nullableString(activity.ProjectID),
		nullableString(activity.LeadID),
		activity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}

	return nil
}

// InsertNotification inserts a pending notification row.
func (r *EntityRepository) InsertNotification(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate notification ID: %w", err)
		}

		notification.ID = id.String()
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	metadataJSON, err := json.Marshal(notification.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal notification metadata: %w", err)
	}

	query := `
		INSERT INTO notifications (id, organization_id, user_id, notification_type,
			delivery_method, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		notification.ID,
		notification.OrganizationID,
		notification.UserID,
		notification.NotificationType,
		notification.DeliveryMethod,
		notification.Status,
		metadataJSON,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}

	return nil
}

// OrganizationSettings returns the display settings of an organization.
func (r *EntityRepository) OrganizationSettings(ctx context.Context, organizationID string) (*models.OrganizationSettings, error) {
	query := `
		SELECT
			organization_id
		  , business_name
		  , date_format
		  , time_format
		  , timezone
		FROM organization_settings
		WHERE organization_id = $1
	`

	var (
		settings     models.OrganizationSettings
		businessName sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, organizationID).Scan(
		&settings.OrganizationID,
		&businessName,
		&settings.DateFormat,
		&settings.TimeFormat,
		&settings.Timezone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrSettingsNotFound
		}

		return nil, fmt.Errorf("failed to query organization settings: %w", err)
	}

	settings.BusinessName = businessName.String

	return &settings, nil
}
