// Package memory provides an in-memory persistence implementation for tests
// and local development.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
)

// Persistence keeps every repository in process-local maps guarded by one
// mutex. Rows are deep-copied on the way in and out so callers cannot alias
// stored state.
type Persistence struct {
	mu sync.Mutex

	workflows     map[string]*models.Workflow
	steps         map[string]*models.WorkflowStep
	executions    map[string]*models.WorkflowExecution
	reminders     map[string]*models.ScheduledSessionReminder
	sessions      map[string]*models.Session
	leads         map[string]*models.Lead
	projects      map[string]*models.Project
	leadFields    map[string]map[string]string
	activities    []*models.Activity
	notifications []*models.Notification
	settings      map[string]*models.OrganizationSettings
	galleries     map[string]*models.Gallery
	organizations map[string]*models.Organization
	grants        []*models.GalleryAccessGrant
	assets        map[string][]*models.GalleryAsset
	jobs          map[string]*models.GalleryDownloadJob

	scheduledSessions []string
	cleanupCalls      int

	// ScheduleRemindersErr, when set, makes ScheduleSessionReminders fail.
	ScheduleRemindersErr error
}

// NewPersistence creates an empty in-memory persistence.
func NewPersistence() *Persistence {
	return &Persistence{
		workflows:     make(map[string]*models.Workflow),
		steps:         make(map[string]*models.WorkflowStep),
		executions:    make(map[string]*models.WorkflowExecution),
		reminders:     make(map[string]*models.ScheduledSessionReminder),
		sessions:      make(map[string]*models.Session),
		leads:         make(map[string]*models.Lead),
		projects:      make(map[string]*models.Project),
		leadFields:    make(map[string]map[string]string),
		settings:      make(map[string]*models.OrganizationSettings),
		galleries:     make(map[string]*models.Gallery),
		organizations: make(map[string]*models.Organization),
		assets:        make(map[string][]*models.GalleryAsset),
		jobs:          make(map[string]*models.GalleryDownloadJob),
	}
}

var _ persistence.Persistence = (*Persistence)(nil)

func (p *Persistence) HealthCheck(_ context.Context) error { return nil }

func (p *Persistence) Close(_ context.Context) error { return nil }

// --- workflows ---

func (p *Persistence) Workflows(_ context.Context, organizationID string) ([]*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.Workflow, 0)

	for _, workflow := range p.workflows {
		if workflow.OrganizationID == organizationID {
			result = append(result, copyWorkflow(workflow))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })

	return result, nil
}

func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	workflow, ok := p.workflows[id]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	return copyWorkflow(workflow), nil
}

func (p *Persistence) ActiveWorkflowsByTrigger(_ context.Context, organizationID string, triggerType models.TriggerType) ([]*models.Workflow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.Workflow, 0)

	for _, workflow := range p.workflows {
		if workflow.OrganizationID == organizationID && workflow.TriggerType == triggerType && workflow.IsActive {
			result = append(result, copyWorkflow(workflow))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return result, nil
}

func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = time.Now().UTC()
	}

	workflow.UpdatedAt = time.Now().UTC()
	p.workflows[workflow.ID] = copyWorkflow(workflow)

	return nil
}

func (p *Persistence) DeleteWorkflow(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.workflows[id]; !ok {
		return persistence.ErrWorkflowNotFound
	}

	delete(p.workflows, id)

	for stepID, step := range p.steps {
		if step.WorkflowID == id {
			delete(p.steps, stepID)
		}
	}

	return nil
}

func (p *Persistence) StepsByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.WorkflowStep, 0)

	for _, step := range p.steps {
		if step.WorkflowID == workflowID && step.IsActive {
			result = append(result, copyStep(step))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].StepOrder < result[j].StepOrder })

	return result, nil
}

func (p *Persistence) SaveWorkflowStep(_ context.Context, step *models.WorkflowStep) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if step.ID == "" {
		step.ID = uuid.New().String()
	}

	p.steps[step.ID] = copyStep(step)

	return nil
}

// --- executions ---

func (p *Persistence) CreateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}

	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = time.Now().UTC()
	}

	p.executions[execution.ID] = copyExecution(execution)

	return nil
}

func (p *Persistence) ExecutionByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	execution, ok := p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	return copyExecution(execution), nil
}

func (p *Persistence) UpdateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.executions[execution.ID]; !ok {
		return persistence.ErrExecutionNotFound
	}

	p.executions[execution.ID] = copyExecution(execution)

	return nil
}

func (p *Persistence) RecentExecutions(_ context.Context, workflowID string, entityType models.EntityType, entityID string, since time.Time) ([]*models.WorkflowExecution, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.WorkflowExecution, 0)

	for _, execution := range p.executions {
		if execution.WorkflowID == workflowID &&
			execution.TriggerEntityType == entityType &&
			execution.TriggerEntityID == entityID &&
			!execution.CreatedAt.Before(since) {
			result = append(result, copyExecution(execution))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	return result, nil
}

// --- reminders ---

func (p *Persistence) DueReminders(_ context.Context, before time.Time) ([]*models.ScheduledSessionReminder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.ScheduledSessionReminder, 0)

	for _, reminder := range p.reminders {
		if reminder.Status == models.ReminderPending && !reminder.ScheduledFor.After(before) {
			result = append(result, copyReminder(reminder))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ScheduledFor.Before(result[j].ScheduledFor) })

	return result, nil
}

func (p *Persistence) ClaimReminder(_ context.Context, id string, processedAt time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	reminder, ok := p.reminders[id]
	if !ok {
		return false, persistence.ErrReminderNotFound
	}

	if reminder.Status != models.ReminderPending {
		return false, nil
	}

	reminder.Status = models.ReminderSent
	at := processedAt
	reminder.ProcessedAt = &at

	return true, nil
}

func (p *Persistence) MarkReminderFailed(_ context.Context, id string, message string, processedAt time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	reminder, ok := p.reminders[id]
	if !ok {
		return persistence.ErrReminderNotFound
	}

	reminder.Status = models.ReminderFailed
	reminder.ErrorMessage = message
	at := processedAt
	reminder.ProcessedAt = &at

	return nil
}

func (p *Persistence) SaveReminder(_ context.Context, reminder *models.ScheduledSessionReminder) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if reminder.ID == "" {
		reminder.ID = uuid.New().String()
	}

	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = time.Now().UTC()
	}

	p.reminders[reminder.ID] = copyReminder(reminder)

	return nil
}

func (p *Persistence) ScheduleSessionReminders(_ context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ScheduleRemindersErr != nil {
		return p.ScheduleRemindersErr
	}

	p.scheduledSessions = append(p.scheduledSessions, sessionID)

	return nil
}

// ScheduledSessions returns the session ids passed to ScheduleSessionReminders.
func (p *Persistence) ScheduledSessions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.scheduledSessions...)
}

func (p *Persistence) CleanupOldReminders(_ context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cleanupCalls++
	removed := 0

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	for id, reminder := range p.reminders {
		if reminder.Status != models.ReminderPending && reminder.ScheduledFor.Before(cutoff) {
			delete(p.reminders, id)
			removed++
		}
	}

	return removed, nil
}

// CleanupCalls returns how many times CleanupOldReminders ran.
func (p *Persistence) CleanupCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.cleanupCalls
}

// ReminderByID returns a stored reminder, for assertions.
func (p *Persistence) ReminderByID(id string) *models.ScheduledSessionReminder {
	p.mu.Lock()
	defer p.mu.Unlock()

	reminder, ok := p.reminders[id]
	if !ok {
		return nil
	}

	return copyReminder(reminder)
}

// --- entities ---

func (p *Persistence) SessionByID(_ context.Context, id string) (*models.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, ok := p.sessions[id]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}

	copied := *session

	return &copied, nil
}

func (p *Persistence) LeadByID(_ context.Context, id string) (*models.Lead, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	lead, ok := p.leads[id]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}

	copied := *lead

	return &copied, nil
}

func (p *Persistence) ProjectByID(_ context.Context, id string) (*models.Project, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	project, ok := p.projects[id]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}

	copied := *project

	return &copied, nil
}

func (p *Persistence) LeadFieldValues(_ context.Context, leadID string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fields := make(map[string]string, len(p.leadFields[leadID]))
	for key, value := range p.leadFields[leadID] {
		fields[key] = value
	}

	return fields, nil
}

func (p *Persistence) UpdateEntityStatus(_ context.Context, entityType models.EntityType, entityID, status string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch entityType {
	case models.EntitySession:
		session, ok := p.sessions[entityID]
		if !ok {
			return persistence.ErrEntityNotFound
		}

		session.Status = status
	case models.EntityProject:
		project, ok := p.projects[entityID]
		if !ok {
			return persistence.ErrEntityNotFound
		}

		project.StatusID = status
	case models.EntityLead:
		lead, ok := p.leads[entityID]
		if !ok {
			return persistence.ErrEntityNotFound
		}

		lead.StatusID = status
	default:
		return persistence.ErrEntityNotFound
	}

	return nil
}

func (p *Persistence) InsertActivity(_ context.Context, activity *models.Activity) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}

	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}

	copied := *activity
	p.activities = append(p.activities, &copied)

	return nil
}

// Activities returns all inserted activities.
func (p *Persistence) Activities() []*models.Activity {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*models.Activity(nil), p.activities...)
}

func (p *Persistence) InsertNotification(_ context.Context, notification *models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	copied := *notification
	p.notifications = append(p.notifications, &copied)

	return nil
}

// Notifications returns all inserted notification rows.
func (p *Persistence) Notifications() []*models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*models.Notification(nil), p.notifications...)
}

// SeedSession stores a session row.
func (p *Persistence) SeedSession(session *models.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *session
	p.sessions[session.ID] = &copied
}

// SeedLead stores a lead row.
func (p *Persistence) SeedLead(lead *models.Lead) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *lead
	p.leads[lead.ID] = &copied
}

// SeedProject stores a project row.
func (p *Persistence) SeedProject(project *models.Project) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *project
	p.projects[project.ID] = &copied
}

// SeedLeadFields stores custom field values for a lead.
func (p *Persistence) SeedLeadFields(leadID string, fields map[string]string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := make(map[string]string, len(fields))
	for key, value := range fields {
		copied[key] = value
	}

	p.leadFields[leadID] = copied
}

// --- settings ---

func (p *Persistence) OrganizationSettings(_ context.Context, organizationID string) (*models.OrganizationSettings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	settings, ok := p.settings[organizationID]
	if !ok {
		return nil, persistence.ErrSettingsNotFound
	}

	copied := *settings

	return &copied, nil
}

// SeedSettings stores organization settings.
func (p *Persistence) SeedSettings(settings *models.OrganizationSettings) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *settings
	p.settings[settings.OrganizationID] = &copied
}

// --- galleries and download jobs ---

func (p *Persistence) GalleryByID(_ context.Context, id string) (*models.Gallery, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gallery, ok := p.galleries[id]
	if !ok {
		return nil, persistence.ErrGalleryNotFound
	}

	copied := *gallery

	return &copied, nil
}

func (p *Persistence) OrganizationByID(_ context.Context, id string) (*models.Organization, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	organization, ok := p.organizations[id]
	if !ok {
		return nil, persistence.ErrEntityNotFound
	}

	copied := *organization

	return &copied, nil
}

func (p *Persistence) AccessGrant(_ context.Context, galleryID, viewerID string, now time.Time) (*models.GalleryAccessGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, grant := range p.grants {
		if grant.GalleryID == galleryID && grant.ViewerID == viewerID && grant.ExpiresAt.After(now) {
			copied := *grant

			return &copied, nil
		}
	}

	return nil, nil
}

func (p *Persistence) GalleryAssetStats(_ context.Context, galleryID string) (int, *time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	count := 0
	var latest *time.Time

	for _, asset := range p.assets[galleryID] {
		if asset.Status != "ready" {
			continue
		}

		count++

		if latest == nil || asset.UpdatedAt.After(*latest) {
			at := asset.UpdatedAt
			latest = &at
		}
	}

	return count, latest, nil
}

func (p *Persistence) GalleryAssets(_ context.Context, galleryID string, offset, limit int) ([]*models.GalleryAsset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ready := make([]*models.GalleryAsset, 0)

	for _, asset := range p.assets[galleryID] {
		if asset.Status == "ready" {
			copied := *asset
			ready = append(ready, &copied)
		}
	}

	sort.Slice(ready, func(i, j int) bool { return ready[i].CreatedAt.Before(ready[j].CreatedAt) })

	if offset >= len(ready) {
		return nil, nil
	}

	end := offset + limit
	if end > len(ready) {
		end = len(ready)
	}

	return ready[offset:end], nil
}

// SeedGallery stores a gallery with its owning organization and grants.
func (p *Persistence) SeedGallery(gallery *models.Gallery) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *gallery
	p.galleries[gallery.ID] = &copied
}

// SeedOrganization stores an organization row.
func (p *Persistence) SeedOrganization(organization *models.Organization) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *organization
	p.organizations[organization.ID] = &copied
}

// SeedAccessGrant stores a gallery access grant.
func (p *Persistence) SeedAccessGrant(grant *models.GalleryAccessGrant) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *grant
	p.grants = append(p.grants, &copied)
}

// SeedGalleryAsset stores a gallery asset.
func (p *Persistence) SeedGalleryAsset(asset *models.GalleryAsset) {
	p.mu.Lock()
	defer p.mu.Unlock()

	copied := *asset
	p.assets[asset.GalleryID] = append(p.assets[asset.GalleryID], &copied)
}

func (p *Persistence) CreateDownloadJob(_ context.Context, job *models.GalleryDownloadJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	p.jobs[job.ID] = copyJob(job)

	return nil
}

func (p *Persistence) DownloadJobByID(_ context.Context, id string) (*models.GalleryDownloadJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[id]
	if !ok {
		return nil, persistence.ErrDownloadJobNotFound
	}

	return copyJob(job), nil
}

func (p *Persistence) ReusableDownloadJob(_ context.Context, galleryID, variant string, assetCount int, assetsUpdatedAt *time.Time, now time.Time) (*models.GalleryDownloadJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var newest *models.GalleryDownloadJob

	for _, job := range p.jobs {
		if job.GalleryID != galleryID || job.AssetVariant != variant || job.AssetCount != assetCount {
			continue
		}

		if !timesEqual(job.AssetsUpdatedAt, assetsUpdatedAt) {
			continue
		}

		if !job.ExpiresAt.After(now) {
			continue
		}

		switch job.Status {
		case models.DownloadJobPending, models.DownloadJobProcessing, models.DownloadJobReady:
		default:
			continue
		}

		if newest == nil || job.CreatedAt.After(newest.CreatedAt) {
			newest = job
		}
	}

	if newest == nil {
		return nil, nil
	}

	return copyJob(newest), nil
}

func (p *Persistence) PendingDownloadJobs(_ context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.GalleryDownloadJob, 0)

	for _, job := range p.jobs {
		if job.Status == models.DownloadJobPending && job.ExpiresAt.After(now) {
			result = append(result, copyJob(job))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (p *Persistence) ClaimDownloadJob(_ context.Context, id string, startedAt time.Time) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	job, ok := p.jobs[id]
	if !ok {
		return false, persistence.ErrDownloadJobNotFound
	}

	if job.Status != models.DownloadJobPending {
		return false, nil
	}

	job.Status = models.DownloadJobProcessing
	at := startedAt
	job.ProcessingStartedAt = &at

	return true, nil
}

func (p *Persistence) UpdateDownloadJob(_ context.Context, job *models.GalleryDownloadJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.jobs[job.ID]; !ok {
		return persistence.ErrDownloadJobNotFound
	}

	p.jobs[job.ID] = copyJob(job)

	return nil
}

func (p *Persistence) ExpiredDownloadJobs(_ context.Context, now time.Time, limit int) ([]*models.GalleryDownloadJob, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make([]*models.GalleryDownloadJob, 0)

	for _, job := range p.jobs {
		if job.Status != models.DownloadJobExpired && !job.ExpiresAt.After(now) {
			result = append(result, copyJob(job))
		}
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ExpiresAt.Before(result[j].ExpiresAt) })

	if len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// --- copies ---

func copyWorkflow(workflow *models.Workflow) *models.Workflow {
	copied := *workflow
	copied.TriggerConditions = copyMap(workflow.TriggerConditions)

	return &copied
}

func copyStep(step *models.WorkflowStep) *models.WorkflowStep {
	copied := *step
	copied.ActionConfig = copyMap(step.ActionConfig)
	copied.Conditions = copyMap(step.Conditions)

	return &copied
}

func copyExecution(execution *models.WorkflowExecution) *models.WorkflowExecution {
	copied := *execution
	copied.ExecutionLog = make([]models.ExecutionLogEntry, len(execution.ExecutionLog))

	for i, entry := range execution.ExecutionLog {
		entryCopy := entry
		entryCopy.TriggerData = copyMap(entry.TriggerData)
		copied.ExecutionLog[i] = entryCopy
	}

	return &copied
}

func copyReminder(reminder *models.ScheduledSessionReminder) *models.ScheduledSessionReminder {
	copied := *reminder

	return &copied
}

func copyJob(job *models.GalleryDownloadJob) *models.GalleryDownloadJob {
	copied := *job

	return &copied
}

func copyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}

	copied := make(map[string]any, len(source))

	for key, value := range source {
		if nested, ok := value.(map[string]any); ok {
			copied[key] = copyMap(nested)

			continue
		}

		copied[key] = value
	}

	return copied
}

// ParseScheme reports whether a database URL selects the memory persistence.
func ParseScheme(databaseURL string) bool {
	return strings.HasPrefix(databaseURL, "memory://") || databaseURL == ""
}

// timesEqual compares two optional timestamps.
func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.Equal(*b)
}
