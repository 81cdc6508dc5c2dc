// Package reminders implements the periodic processor that turns due
// scheduled session reminders into workflow dispatches.
package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

// lookAheadBuffer widens the due query so reminders landing moments after
// the tick are not pushed a full interval into the future.
const lookAheadBuffer = 5 * time.Minute

// Result reports what one processor run did.
type Result struct {
	Processed int `json:"processed"`
	Triggered int `json:"triggered"`
	Failed    int `json:"failed"`
}

// Processor claims due reminders and re-enters the dispatcher with exact
// session and lead snapshots embedded in the trigger payload.
type Processor struct {
	persistence persistence.Persistence
	dispatcher  *workflow.Dispatcher
	logger      *slog.Logger
}

func NewProcessor(p persistence.Persistence, dispatcher *workflow.Dispatcher, logger *slog.Logger) *Processor {
	return &Processor{
		persistence: p,
		dispatcher:  dispatcher,
		logger:      logger.With("module", "reminder_processor"),
	}
}

// Run processes every due reminder once. A reminder is claimed (pending to
// sent) before its dispatch is attempted; a dispatch error flips it to
// failed. Concurrent runs lose the claim race harmlessly.
func (p *Processor) Run(ctx context.Context) (*Result, error) {
	now := time.Now().UTC()

	due, err := p.persistence.DueReminders(ctx, now.Add(lookAheadBuffer))
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}

	result := &Result{}

	for _, reminder := range due {
		result.Processed++

		session, lead, validationErr := p.validate(ctx, reminder)
		if validationErr != nil {
			p.logger.WarnContext(ctx, "reminder context invalid",
				"reminder_id", reminder.ID, "error", validationErr)
			p.markFailed(ctx, reminder.ID, validationErr.Error())

			result.Failed++

			continue
		}

		claimed, err := p.persistence.ClaimReminder(ctx, reminder.ID, time.Now().UTC())
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to claim reminder",
				"reminder_id", reminder.ID, "error", err)

			result.Failed++

			continue
		}

		if !claimed {
			p.logger.InfoContext(ctx, "reminder claimed by a concurrent run", "reminder_id", reminder.ID)
			result.Processed--

			continue
		}

		dispatch, err := p.dispatcher.Dispatch(ctx, triggerRequest(reminder, session, lead))
		if err != nil {
			p.logger.ErrorContext(ctx, "reminder dispatch failed",
				"reminder_id", reminder.ID, "error", err)
			p.markFailed(ctx, reminder.ID, err.Error())

			result.Failed++

			continue
		}

		result.Triggered += dispatch.TriggeredWorkflows
	}

	removed, err := p.persistence.CleanupOldReminders(ctx)
	if err != nil {
		p.logger.ErrorContext(ctx, "reminder cleanup failed", "error", err)
	} else if removed > 0 {
		p.logger.InfoContext(ctx, "cleaned up old reminders", "removed", removed)
	}

	return result, nil
}

// validate checks the reminder still points at a structurally sound session
// and lead before anything is claimed or dispatched.
func (p *Processor) validate(ctx context.Context, reminder *models.ScheduledSessionReminder) (*models.Session, *models.Lead, error) {
	session, err := p.persistence.SessionByID(ctx, reminder.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("session %s unavailable: %w", reminder.SessionID, err)
	}

	if session.SessionDate == "" {
		return nil, nil, fmt.Errorf("session %s has no date", session.ID)
	}

	if session.LeadID == "" {
		return nil, nil, fmt.Errorf("session %s has no lead", session.ID)
	}

	lead, err := p.persistence.LeadByID(ctx, session.LeadID)
	if err != nil {
		return nil, nil, fmt.Errorf("lead %s unavailable: %w", session.LeadID, err)
	}

	return session, lead, nil
}

// triggerRequest reconstructs the dispatch payload with exact snapshots of
// the session and lead the reminder was computed against. The embedded
// workflow_id force-targets the reminder's workflow.
func triggerRequest(reminder *models.ScheduledSessionReminder, session *models.Session, lead *models.Lead) workflow.TriggerRequest {
	return workflow.TriggerRequest{
		TriggerType:    models.TriggerSessionReminder,
		EntityType:     models.EntitySession,
		EntityID:       session.ID,
		OrganizationID: reminder.OrganizationID,
		TriggerData: map[string]any{
			"workflow_id":   reminder.WorkflowID,
			"reminder_type": reminder.ReminderType,
			"session_data": map[string]any{
				"name":         session.Name,
				"session_date": session.SessionDate,
				"session_time": session.SessionTime,
				"location":     session.Location,
				"notes":        session.Notes,
				"status":       session.Status,
			},
			"lead_data": map[string]any{
				"name":  lead.Name,
				"email": lead.Email,
				"phone": lead.Phone,
			},
			"debug_session_validation": map[string]any{
				"expected_session_id": session.ID,
				"reminder_id":         reminder.ID,
				"scheduled_for":       reminder.ScheduledFor.Format(time.RFC3339),
			},
		},
	}
}

func (p *Processor) markFailed(ctx context.Context, reminderID, message string) {
	err := p.persistence.MarkReminderFailed(ctx, reminderID, message, time.Now().UTC())
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to mark reminder failed",
			"reminder_id", reminderID, "error", err)
	}
}
