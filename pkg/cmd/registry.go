package cmd

import (
	"log/slog"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/actions/createreminder"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/actions/sendmessage"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/actions/updatestatus"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/notify"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/registry"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
)

// NewRegistry builds the action registry with every native action wired to
// its collaborators. The messaging action types all share one implementation
// parameterized by the delivery channel.
func NewRegistry(
	logger *slog.Logger,
	mailer notify.Mailer,
	sender notify.Sender,
	settingsService *settings.Service,
	repo persistence.EntityRepository,
) *registry.Registry {
	reg := registry.NewRegistry(logger)

	messageTypes := []models.ActionType{
		models.ActionSendNotification,
		models.ActionSendEmail,
		models.ActionSendSMS,
		models.ActionSendWhatsApp,
	}
	for _, actionType := range messageTypes {
		reg.RegisterAction(sendmessage.NewFactory(actionType, mailer, sender, settingsService, repo))
	}

	reg.RegisterAction(createreminder.NewFactory(repo))
	reg.RegisterAction(updatestatus.NewFactory(repo))

	return reg
}
