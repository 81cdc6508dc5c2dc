package reminders

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/eventbus"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

type nullPublisher struct{}

func (nullPublisher) Publish(_ context.Context, _ string, _ eventbus.Event) error { return nil }

type fixture struct {
	store     *memory.Persistence
	processor *Processor
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewPersistence()
	settingsService := settings.NewService(store, nil, logger)
	dispatcher := workflow.NewDispatcher(store, settingsService, nullPublisher{}, logger)

	return &fixture{
		store:     store,
		processor: NewProcessor(store, dispatcher, logger),
	}
}

func (f *fixture) seedReminderWorkflow(t *testing.T) *models.Workflow {
	t.Helper()

	wf := &models.Workflow{
		ID:                "wf-reminder",
		Name:              "Day-before reminder",
		TriggerType:       models.TriggerSessionReminder,
		TriggerEntityType: models.EntitySession,
		IsActive:          true,
		OrganizationID:    "org-1",
	}
	require.NoError(t, f.store.SaveWorkflow(context.Background(), wf))

	return wf
}

func (f *fixture) seedSessionWithLead(t *testing.T) {
	t.Helper()

	future := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	f.store.SeedSession(&models.Session{
		ID:             "session-1",
		OrganizationID: "org-1",
		LeadID:         "lead-1",
		Name:           "Engagement shoot",
		SessionDate:    future,
		SessionTime:    "15:00",
	})
	f.store.SeedLead(&models.Lead{
		ID:             "lead-1",
		OrganizationID: "org-1",
		Name:           "Elif",
		Email:          "elif@example.com",
	})
}

func (f *fixture) seedDueReminder(t *testing.T, id string) {
	t.Helper()

	require.NoError(t, f.store.SaveReminder(context.Background(), &models.ScheduledSessionReminder{
		ID:             id,
		SessionID:      "session-1",
		WorkflowID:     "wf-reminder",
		OrganizationID: "org-1",
		ReminderType:   "day_before",
		ScheduledFor:   time.Now().UTC().Add(-time.Minute),
		Status:         models.ReminderPending,
	}))
}

func TestRun_DispatchesDueReminder(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)
	f.seedSessionWithLead(t)
	f.seedDueReminder(t, "rem-1")

	result, err := f.processor.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Triggered)
	assert.Equal(t, 0, result.Failed)

	reminder := f.store.ReminderByID("rem-1")
	require.NotNil(t, reminder)
	assert.Equal(t, models.ReminderSent, reminder.Status)
	assert.NotNil(t, reminder.ProcessedAt)
	assert.Equal(t, 1, f.store.CleanupCalls())
}

func TestRun_ReminderInsideLookAheadWindow(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)
	f.seedSessionWithLead(t)

	require.NoError(t, f.store.SaveReminder(context.Background(), &models.ScheduledSessionReminder{
		ID:             "rem-soon",
		SessionID:      "session-1",
		WorkflowID:     "wf-reminder",
		OrganizationID: "org-1",
		ReminderType:   "day_before",
		ScheduledFor:   time.Now().UTC().Add(3 * time.Minute),
		Status:         models.ReminderPending,
	}))

	result, err := f.processor.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)
}

func TestRun_ReminderBeyondLookAheadIsLeftAlone(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)
	f.seedSessionWithLead(t)

	require.NoError(t, f.store.SaveReminder(context.Background(), &models.ScheduledSessionReminder{
		ID:             "rem-later",
		SessionID:      "session-1",
		WorkflowID:     "wf-reminder",
		OrganizationID: "org-1",
		ReminderType:   "day_before",
		ScheduledFor:   time.Now().UTC().Add(time.Hour),
		Status:         models.ReminderPending,
	}))

	result, err := f.processor.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)

	reminder := f.store.ReminderByID("rem-later")
	require.NotNil(t, reminder)
	assert.Equal(t, models.ReminderPending, reminder.Status)
}

func TestRun_MissingSessionMarksReminderFailed(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)
	f.seedDueReminder(t, "rem-orphan")

	result, err := f.processor.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	reminder := f.store.ReminderByID("rem-orphan")
	require.NotNil(t, reminder)
	assert.Equal(t, models.ReminderFailed, reminder.Status)
	assert.Contains(t, reminder.ErrorMessage, "unavailable")
}

func TestRun_SessionWithoutDateMarksReminderFailed(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)
	f.store.SeedSession(&models.Session{
		ID:             "session-1",
		OrganizationID: "org-1",
		LeadID:         "lead-1",
	})
	f.store.SeedLead(&models.Lead{ID: "lead-1", OrganizationID: "org-1", Name: "Elif"})
	f.seedDueReminder(t, "rem-nodate")

	result, err := f.processor.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
}

func TestRun_AlreadyClaimedReminderIsNotCounted(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)
	f.seedSessionWithLead(t)
	f.seedDueReminder(t, "rem-1")

	// First run claims and dispatches.
	_, err := f.processor.Run(context.Background())
	require.NoError(t, err)

	// Second run sees nothing due.
	result, err := f.processor.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Processed)
	assert.Equal(t, 0, result.Triggered)
}

func TestRun_ForcedWorkflowTargeting(t *testing.T) {
	f := newFixture()
	f.seedReminderWorkflow(t)

	// A second active reminder workflow must not fire for this reminder.
	other := &models.Workflow{
		ID:                "wf-other",
		Name:              "Week-before reminder",
		TriggerType:       models.TriggerSessionReminder,
		TriggerEntityType: models.EntitySession,
		IsActive:          true,
		OrganizationID:    "org-1",
	}
	require.NoError(t, f.store.SaveWorkflow(context.Background(), other))

	f.seedSessionWithLead(t)
	f.seedDueReminder(t, "rem-1")

	result, err := f.processor.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.Triggered)
}
