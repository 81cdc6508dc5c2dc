// Package postgres provides the PostgreSQL persistence implementation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	workflowRepo *WorkflowRepository
	execRepo     *ExecutionRepository
	reminderRepo *ReminderRepository
	entityRepo   *EntityRepository
	downloadRepo *DownloadRepository
}

var _ persistence.Persistence = (*Persistence)(nil)

// NewPersistence connects to PostgreSQL and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		workflowRepo: NewWorkflowRepository(database, logger),
		execRepo:     NewExecutionRepository(database, logger),
		reminderRepo: NewReminderRepository(database, logger),
		entityRepo:   NewEntityRepository(database, logger),
		downloadRepo: NewDownloadRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Workflows(ctx context.Context, organizationID string) ([]*models.Workflow, error) {
	return p.workflowRepo.GetAll(ctx, organizationID)
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return p.workflowRepo.GetByID(ctx, id)
}

func (p *Persistence) ActiveWorkflowsByTrigger(ctx context.Context, organizationID string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	return p.workflowRepo.GetActiveByTrigger(ctx, organizationID, triggerType)
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return p.workflowRepo.Save(ctx, workflow)
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	return p.workflowRepo.Delete(ctx, id)
}

func (p *Persistence) StepsByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	return p.workflowRepo.StepsByWorkflow(ctx, workflowID)
}

func (p *Persistence) SaveWorkflowStep(ctx context.Context, step *models.WorkflowStep) error {
	return p.workflowRepo.SaveStep(ctx, step)
}

func (p *Persistence) CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	return p.execRepo.Create(ctx, execution)
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return p.execRepo.GetByID(ctx, id)
}

func (p *Persistence) UpdateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	return p.execRepo.Update(ctx, execution)
}

func (p *Persistence) RecentExecutions(ctx context.Context, workflowID string, entityType models.EntityType, entityID string, since time.Time) ([]*models.WorkflowExecution, error) {
	return p.execRepo.Recent(ctx, workflowID, entityType, entityID, since)
}

func (p *Persistence) DueReminders(ctx context.Context, before time.Time) ([]*models.ScheduledSessionReminder, error) {
	return p.reminderRepo.Due(ctx, before)
}

func (p *Persistence) ClaimReminder(ctx context.Context, id string, processedAt time.Time) (bool, error) {
	return p.reminderRepo.Claim(ctx, id, processedAt)
}

func (p *Persistence) MarkReminderFailed(ctx context.Context, id string, message string, processedAt time.Time) error {
	return p.reminderRepo.MarkFailed(ctx, id, message, processedAt)
}

func (p *Persistence) SaveReminder(ctx context.Context, reminder *models.ScheduledSessionReminder) error {
	return p.reminderRepo.Save(ctx, reminder)
}

func (p *Persistence) ScheduleSessionReminders(ctx context.Context, sessionID string) error {
	return p.reminderRepo.Schedule(ctx, sessionID)
}

func (p *Persistence) CleanupOldReminders(ctx context.Context) (int, error) {
	return p.reminderRepo.Cleanup(ctx)
}

func (p *Persistence) SessionByID(ctx context.Context, id string) (*models.Session, error) {
	return p.entityRepo.SessionByID(ctx, id)
}

func (p *Persistence) LeadByID(ctx context.Context, id string) (*models.Lead, error) {
	return p.entityRepo.LeadByID(ctx, id)
}

func (p *Persistence) ProjectByID(ctx context.Context, id string) (*models.Project, error) {
	return p.entityRepo.ProjectByID(ctx, id)
}

func (p *Persistence) LeadFieldValues(ctx context.Context, leadID string) (map[string]string, error) {
	return p.entityRepo.LeadFieldValues(ctx, leadID)
}

func (p *Persistence) UpdateEntityStatus(ctx context.Context, entityType models.EntityType, entityID, status string) error {
	return p.entityRepo.UpdateEntityStatus(ctx, entityType, entityID, status)
}

func (p *Persistence) InsertActivity(ctx context.Context, activity *models.Activity) error {
	return p.entityRepo.InsertActivity(ctx, activity)
}

func (p *Persistence) InsertNotification(ctx context.Context, notification *models.Notification) error {
	return p.entityRepo.InsertNotification(ctx, notification)
}

func (p *Persistence) OrganizationSettings(ctx context.Context, organizationID string) (*models.OrganizationSettings, error) {
	return p.entityRepo.OrganizationSettings(ctx, organizationID)
}

func (p *Persistence) GalleryByID(ctx context.Context, id string) (*models.Gallery, error) {
	return p.downloadRepo.GalleryByID(ctx, id)
}

func (p *Persistence) OrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	return p.downloadRepo.OrganizationByID(ctx, id)
}

func (p *Persistence) AccessGrant(ctx context.Context, galleryID, viewerID string, now time.Time) (*models.GalleryAccessGrant, error) {
	return p.downloadRepo.AccessGrant(ctx, galleryID, viewerID, now)
}

func (p *Persistence) GalleryAssetStats(ctx context.Context, galleryID string) (int, *time.Time, error) {
	return p.downloadRepo.GalleryAssetStats(ctx, galleryID)
}

func (p *Persistence) GalleryAssets(ctx context.Context, galleryID string, offset, limit int) ([]*models.GalleryAsset, error) {
	return p.downloadRepo.GalleryAssets(ctx, galleryID, offset, limit)
}

func (p *Persistence) CreateDownloadJob(ctx context.Context, job *models.GalleryDownloadJob) error {
	return p.downloadRepo.CreateJob(ctx, job)
}

func (p *Persistence) DownloadJobByID(ctx context.Context, id string) (*models.GalleryDownloadJob, error) {
	return p.downloadRepo.JobByID(ctx, id)
}

func (p *Persistence) ReusableDownloadJob(ctx context.Context, galleryID, variant string, assetCount int, assetsUpdatedAt *time.Time, now time.Time) (*models.GalleryDownloadJob, error) {
	return p.downloadRepo.Reusable(ctx, galleryID, variant, assetCount, assetsUpdatedAt, now)
}

func (p *Persistence) PendingDownloadJobs(ctx context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error) {
	return p.downloadRepo.Pending(ctx, now, limit)
}

func (p *Persistence) ClaimDownloadJob(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	return p.downloadRepo.Claim(ctx, id, startedAt)
}

func (p *Persistence) UpdateDownloadJob(ctx context.Context, job *models.GalleryDownloadJob) error {
	return p.downloadRepo.UpdateJob(ctx, job)
}

func (p *Persistence) ExpiredDownloadJobs(ctx context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error) {
	return p.downloadRepo.Expired(ctx, now, limit)
}
