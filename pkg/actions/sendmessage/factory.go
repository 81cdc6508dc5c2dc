package sendmessage

import (
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/notify"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/protocol"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
)

// Factory builds Action instances for one of the four message action types.
type Factory struct {
	actionType models.ActionType
	mailer     notify.Mailer
	sender     notify.Sender
	settings   *settings.Service
	repo       persistence.EntityRepository
}

func NewFactory(actionType models.ActionType, mailer notify.Mailer, sender notify.Sender, settingsService *settings.Service, repo persistence.EntityRepository) *Factory {
	return &Factory{
		actionType: actionType,
		mailer:     mailer,
		sender:     sender,
		settings:   settingsService,
		repo:       repo,
	}
}

func (f *Factory) ID() string {
	return string(f.actionType)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	if config == nil {
		config = map[string]any{}
	}

	action := &Action{
		actionType: f.actionType,
		mailer:     f.mailer,
		sender:     f.sender,
		settings:   f.settings,
		repo:       f.repo,
	}

	if templateID, ok := config["template_id"].(string); ok {
		action.templateID = templateID
	}

	if subject, ok := config["subject"].(string); ok {
		action.subject = subject
	}

	if body, ok := config["message"].(string); ok {
		action.body = body
	}

	return action, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template_id": map[string]any{
				"type":        "string",
				"description": "Identifier of the stored message template to use.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Message subject. Supports {{placeholder}} substitution.",
			},
			"message": map[string]any{
				"type":        "string",
				"description": "Message body. Supports {{placeholder}} substitution.",
				"examples": []string{
					"Hi {{client_name}}, your session is on {{session_date}} at {{session_time}}.",
				},
			},
		},
	}
}
