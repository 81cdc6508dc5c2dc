package updatestatus

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func executionContext(entityType models.EntityType, entityID string) models.ExecutionContext {
	return models.ExecutionContext{
		ExecutionID: "exec-1",
		Workflow: &models.Workflow{
			ID:             "wf-1",
			OrganizationID: "org-1",
		},
		Execution: &models.WorkflowExecution{
			ID:                "exec-1",
			WorkflowID:        "wf-1",
			TriggerEntityType: entityType,
			TriggerEntityID:   entityID,
		},
	}
}

func createAction(t *testing.T, store *memory.Persistence, config map[string]any) *Action {
	t.Helper()

	action, err := NewFactory(store).Create(config)
	require.NoError(t, err)

	return action.(*Action)
}

func TestExecute_UpdatesLeadStatus(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedLead(&models.Lead{ID: "lead-1", Name: "Ayse Yilmaz", StatusID: "new"})

	action := createAction(t, store, map[string]any{"target_status": "booked"})

	result, err := action.Execute(context.Background(), executionContext(models.EntityLead, "lead-1"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "status set to booked", result["details"])

	lead, err := store.LeadByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "booked", lead.StatusID)
}

func TestExecute_MissingTargetIsNoOp(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedLead(&models.Lead{ID: "lead-1", StatusID: "new"})

	action := createAction(t, store, map[string]any{})

	result, err := action.Execute(context.Background(), executionContext(models.EntityLead, "lead-1"), testLogger())
	require.NoError(t, err)
	assert.Equal(t, "skipped: no target status configured", result["details"])

	lead, err := store.LeadByID(context.Background(), "lead-1")
	require.NoError(t, err)
	assert.Equal(t, "new", lead.StatusID)
}

func TestExecute_UnknownEntityFails(t *testing.T) {
	store := memory.NewPersistence()

	action := createAction(t, store, map[string]any{"target_status": "booked"})

	_, err := action.Execute(context.Background(), executionContext(models.EntityLead, "missing"), testLogger())
	require.Error(t, err)
}
