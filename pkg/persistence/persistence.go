// Package persistence provides the data storage abstraction layer for
// workflows, executions, reminders, entities and download jobs.
package persistence

import (
	"context"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

// WorkflowRepository stores workflow definitions and their steps.
type WorkflowRepository interface {
	Workflows(ctx context.Context, organizationID string) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	ActiveWorkflowsByTrigger(ctx context.Context, organizationID string, triggerType models.TriggerType) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	StepsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error)
	SaveWorkflowStep(ctx context.Context, step *models.WorkflowStep) error
}

// ExecutionRepository stores workflow execution records and their logs.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error
	// RecentExecutions returns executions for the workflow+entity created at or
	// after since, regardless of status. Callers filter by status/trigger data.
	RecentExecutions(ctx context.Context, workflowID string, entityType models.EntityType, entityID string, since time.Time) ([]*models.WorkflowExecution, error)
}

// ReminderRepository stores scheduled session reminders and exposes the two
// stored-procedure contracts around them.
type ReminderRepository interface {
	DueReminders(ctx context.Context, before time.Time) ([]*models.ScheduledSessionReminder, error)
	// ClaimReminder transitions pending -> sent. Returns false when the row was
	// no longer pending, which is how concurrent runs lose the claim race.
	ClaimReminder(ctx context.Context, id string, processedAt time.Time) (bool, error)
	MarkReminderFailed(ctx context.Context, id string, message string, processedAt time.Time) error
	SaveReminder(ctx context.Context, reminder *models.ScheduledSessionReminder) error

	// ScheduleSessionReminders invokes the external scheduling procedure.
	ScheduleSessionReminders(ctx context.Context, sessionID string) error
	// CleanupOldReminders invokes the external cleanup procedure.
	CleanupOldReminders(ctx context.Context) (int, error)
}

// EntityRepository reads and mutates the business objects workflows act on.
type EntityRepository interface {
	SessionByID(ctx context.Context, id string) (*models.Session, error)
	LeadByID(ctx context.Context, id string) (*models.Lead, error)
	ProjectByID(ctx context.Context, id string) (*models.Project, error)
	// LeadFieldValues returns the dynamic custom field values of a lead keyed
	// by field key.
	LeadFieldValues(ctx context.Context, leadID string) (map[string]string, error)
	UpdateEntityStatus(ctx context.Context, entityType models.EntityType, entityID, status string) error
	InsertActivity(ctx context.Context, activity *models.Activity) error
	InsertNotification(ctx context.Context, notification *models.Notification) error
}

// SettingsRepository reads per-organization display settings.
type SettingsRepository interface {
	OrganizationSettings(ctx context.Context, organizationID string) (*models.OrganizationSettings, error)
}

// DownloadRepository stores galleries, assets and download jobs.
type DownloadRepository interface {
	GalleryByID(ctx context.Context, id string) (*models.Gallery, error)
	OrganizationByID(ctx context.Context, id string) (*models.Organization, error)
	AccessGrant(ctx context.Context, galleryID, viewerID string, now time.Time) (*models.GalleryAccessGrant, error)
	// GalleryAssetStats returns the ready-asset count and latest updated_at,
	// the content fingerprint for request dedup.
	GalleryAssetStats(ctx context.Context, galleryID string) (int, *time.Time, error)
	GalleryAssets(ctx context.Context, galleryID string, offset, limit int) ([]*models.GalleryAsset, error)

	CreateDownloadJob(ctx context.Context, job *models.GalleryDownloadJob) error
	DownloadJobByID(ctx context.Context, id string) (*models.GalleryDownloadJob, error)
	// ReusableDownloadJob finds a non-expired pending/processing/ready job with
	// the same variant and content fingerprint.
	ReusableDownloadJob(ctx context.Context, galleryID, variant string, assetCount int, assetsUpdatedAt *time.Time, now time.Time) (*models.GalleryDownloadJob, error)
	PendingDownloadJobs(ctx context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error)
	// ClaimDownloadJob transitions pending -> processing. Returns false when
	// another tick claimed the job first.
	ClaimDownloadJob(ctx context.Context, id string, startedAt time.Time) (bool, error)
	UpdateDownloadJob(ctx context.Context, job *models.GalleryDownloadJob) error
	ExpiredDownloadJobs(ctx context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error)
}

// Persistence aggregates every repository the engine needs.
type Persistence interface {
	WorkflowRepository
	ExecutionRepository
	ReminderRepository
	EntityRepository
	SettingsRepository
	DownloadRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
