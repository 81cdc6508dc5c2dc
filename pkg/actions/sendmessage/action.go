// Package sendmessage implements the templated message step actions:
// send_notification, send_email, send_sms and send_whatsapp.
package sendmessage

import (
	"context"
	"log/slog"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/notify"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/template"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

// Action renders a message template against the execution's entity data and
// delivers it. Primary delivery is the templated mailer; on its failure the
// action queues a pending notification row and pokes the notification
// pipeline as a best-effort secondary path.
type Action struct {
	actionType models.ActionType
	templateID string
	subject    string
	body       string

	mailer   notify.Mailer
	sender   notify.Sender
	settings *settings.Service
	repo     persistence.EntityRepository
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", a.actionType)

	recipient := workflow.ClientEmail(executionCtx.EntityData)
	if recipient == "" {
		logger.InfoContext(ctx, "no client email resolvable, skipping message")

		return map[string]any{"details": "skipped: no client email"}, nil
	}

	templateData, err := a.displayData(ctx, executionCtx)
	if err != nil {
		return nil, err
	}

	email := notify.TemplatedEmail{
		TemplateID:     a.templateID,
		To:             recipient,
		RecipientName:  templateData["client_name"],
		Subject:        template.Render(a.subject, templateData),
		Body:           template.Render(a.body, templateData),
		OrganizationID: executionCtx.Workflow.OrganizationID,
		ExecutionID:    executionCtx.ExecutionID,
		TemplateData:   templateData,
	}

	err = a.mailer.SendTemplated(ctx, email)
	if err == nil {
		return map[string]any{"details": "message sent to " + recipient}, nil
	}

	logger.WarnContext(ctx, "templated send failed, queueing fallback notification", "error", err)

	return a.fallback(ctx, executionCtx, email, logger)
}

// displayData copies the entity context with session date and time rendered
// in the organization's display format, plus the business name.
func (a *Action) displayData(ctx context.Context, executionCtx models.ExecutionContext) (map[string]string, error) {
	orgSettings, err := a.settings.ForOrganization(ctx, executionCtx.Workflow.OrganizationID)
	if err != nil {
		return nil, err
	}

	data := make(map[string]string, len(executionCtx.EntityData)+1)
	for key, value := range executionCtx.EntityData {
		data[key] = value
	}

	if date := data["session_date"]; date != "" {
		formatted := settings.FormatDate(date, orgSettings.DateFormat)
		data["session_date"] = formatted
		data["formatted_session_date"] = formatted
	}

	if clock := data["session_time"]; clock != "" {
		formatted := settings.FormatTime(clock, orgSettings.TimeFormat)
		data["session_time"] = formatted
		data["formatted_session_time"] = formatted
	}

	if orgSettings.BusinessName != "" {
		data["business_name"] = orgSettings.BusinessName
	}

	return data, nil
}

func (a *Action) fallback(ctx context.Context, executionCtx models.ExecutionContext, email notify.TemplatedEmail, logger *slog.Logger) (map[string]any, error) {
	notification := &models.Notification{
		OrganizationID:   executionCtx.Workflow.OrganizationID,
		UserID:           executionCtx.Workflow.UserID,
		NotificationType: "workflow-message",
		DeliveryMethod:   a.deliveryMethod(),
		Status:           "pending",
		Metadata: map[string]any{
			"recipient_email":       email.To,
			"subject":               email.Subject,
			"body":                  email.Body,
			"workflow_execution_id": email.ExecutionID,
		},
	}

	err := a.repo.InsertNotification(ctx, notification)
	if err != nil {
		return nil, err
	}

	err = a.sender.Send(ctx, notify.Message{
		Channel:        a.deliveryMethod(),
		To:             email.To,
		Body:           email.Body,
		OrganizationID: executionCtx.Workflow.OrganizationID,
		UserID:         executionCtx.Workflow.UserID,
	})
	if err != nil {
		logger.WarnContext(ctx, "notification pipeline invocation failed", "error", err)
	}

	return map[string]any{"details": "message queued for " + email.To}, nil
}

func (a *Action) deliveryMethod() string {
	switch a.actionType {
	case models.ActionSendSMS:
		return "sms"
	case models.ActionSendWhatsApp:
		return "whatsapp"
	case models.ActionSendEmail:
		return "email"
	default:
		return "in_app"
	}
}
