// Package updatestatus implements the update_status step action.
package updatestatus

import (
	"context"
	"log/slog"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/protocol"
)

// Action moves the triggering entity to a configured target status. A
// missing target is a logged no-op, not an error.
type Action struct {
	targetStatus string
	repo         persistence.EntityRepository
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("action_type", models.ActionUpdateStatus)

	if a.targetStatus == "" {
		logger.WarnContext(ctx, "no target status configured, skipping")

		return map[string]any{"details": "skipped: no target status configured"}, nil
	}

	execution := executionCtx.Execution

	err := a.repo.UpdateEntityStatus(ctx, execution.TriggerEntityType, execution.TriggerEntityID, a.targetStatus)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "entity status updated",
		"entity_type", execution.TriggerEntityType,
		"entity_id", execution.TriggerEntityID,
		"status", a.targetStatus)

	return map[string]any{"details": "status set to " + a.targetStatus}, nil
}

// Factory builds update_status actions.
type Factory struct {
	repo persistence.EntityRepository
}

func NewFactory(repo persistence.EntityRepository) *Factory {
	return &Factory{repo: repo}
}

func (f *Factory) ID() string {
	return string(models.ActionUpdateStatus)
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	action := &Action{repo: f.repo}

	if status, ok := config["target_status"].(string); ok {
		action.targetStatus = status
	}

	return action, nil
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"target_status": map[string]any{
				"type":        "string",
				"description": "Status value written to the triggering entity.",
			},
		},
	}
}
