// Package protocol defines the contracts workflow step actions implement.
package protocol

import (
	"context"
	"log/slog"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

// Action is one executable workflow step. Execute returns a result payload
// recorded in the execution log.
type Action interface {
	Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error)
}

// ActionFactory builds actions from step configuration. Schema returns the
// JSON schema the configuration is validated against at registration time.
type ActionFactory interface {
	Create(config map[string]any) (Action, error)
	ID() string
	Schema() map[string]any
}
