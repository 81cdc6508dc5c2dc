// Package createreminder implements the create_reminder step action.
package createreminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/protocol"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/template"
)

const defaultDelayMinutes = 60

// Action inserts a timeline reminder linked to the triggering entity,
// scheduled delay_minutes into the future.
type Action struct {
	content      string
	delayMinutes int
	repo         persistence.EntityRepository
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.ActionCreateReminder)

	remindAt := time.Now().Add(time.Duration(a.delayMinutes) * time.Minute)

	activity := &models.Activity{
		UserID:         executionCtx.Workflow.UserID,
		OrganizationID: executionCtx.Workflow.OrganizationID,
		Type:           "reminder",
		Content:        template.Render(a.content, executionCtx.EntityData),
		ReminderDate:   remindAt.Format("2006-01-02"),
		ReminderTime:   remindAt.Format("15:04:05"),
	}

	if err := a.linkEntity(ctx, activity, executionCtx); err != nil {
		return nil, err
	}

	if err := a.repo.InsertActivity(ctx, activity); err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "reminder created", "activity_id", activity.ID, "remind_at", remindAt)

	return map[string]any{
		"details":     "reminder scheduled for " + remindAt.Format(time.RFC3339),
		"activity_id": activity.ID,
	}, nil
}

// linkEntity attaches the reminder to the project or lead behind the
// triggering entity. Sessions link through their own references.
func (a *Action) linkEntity(ctx context.Context, activity *models.Activity, executionCtx models.ExecutionContext) error {
	execution := executionCtx.Execution

	switch execution.TriggerEntityType {
	case models.EntityProject:
		activity.ProjectID = execution.TriggerEntityID
	case models.EntityLead:
		activity.LeadID = execution.TriggerEntityID
	case models.EntitySession:
		session, err := a.repo.SessionByID(ctx, execution.TriggerEntityID)
		if err != nil {
			return err
		}

		activity.ProjectID = session.ProjectID
		activity.LeadID = session.LeadID
	}

	return nil
}

// Factory builds create_reminder actions.
type Factory struct {
	repo persistence.EntityRepository
}

func NewFactory(repo persistence.EntityRepository) *Factory {
	return &Factory{repo: repo}
}

func (f *Factory) ID() string {
	return string(models.ActionCreateReminder)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	action := &Action{repo: f.repo, delayMinutes: defaultDelayMinutes}

	if content, ok := config["content"].(string); ok {
		action.content = content
	}

	if minutes, ok := config["delay_minutes"].(float64); ok && minutes > 0 {
		action.delayMinutes = int(minutes)
	}

	return action, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"content": map[string]any{
				"type":        "string",
				"description": "Reminder text. Supports {{placeholder}} substitution.",
			},
			"delay_minutes": map[string]any{
				"type":        "number",
				"description": "Minutes from now at which the reminder is due.",
				"default":     defaultDelayMinutes,
				"minimum":     1,
			},
		},
	}
}
