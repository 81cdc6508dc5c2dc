package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/protocol"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/registry"
)

type stubAction struct {
	execute func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)
}

func (a *stubAction) Execute(ctx context.Context, executionCtx models.ExecutionContext, _ *slog.Logger) (map[string]any, error) {
	return a.execute(ctx, executionCtx)
}

type stubFactory struct {
	actionType string
	execute    func(ctx context.Context, executionCtx models.ExecutionContext) (map[string]any, error)
}

func (f *stubFactory) Create(_ map[string]any) (protocol.Action, error) {
	return &stubAction{execute: f.execute}, nil
}

func (f *stubFactory) ID() string { return f.actionType }

func (f *stubFactory) Schema() map[string]any { return nil }

type executorFixture struct {
	store    *memory.Persistence
	registry *registry.Registry
	executor *Executor
}

func newExecutorFixture() *executorFixture {
	logger := testLogger()
	store := memory.NewPersistence()
	reg := registry.NewRegistry(logger)
	resolver := NewEntityResolver(store, logger)
	executor := NewExecutor(store, reg, resolver, logger).
		WithRetryStrategy(LinearBackoffStrategy{Base: time.Millisecond, Attempts: 3})

	return &executorFixture{store: store, registry: reg, executor: executor}
}

func (f *executorFixture) seedExecution(t *testing.T, steps ...*models.WorkflowStep) *models.WorkflowExecution {
	t.Helper()

	ctx := context.Background()

	workflow := &models.Workflow{
		ID:                "wf-1",
		Name:              "Booking follow-up",
		TriggerType:       models.TriggerLeadStatusChanged,
		TriggerEntityType: models.EntityLead,
		IsActive:          true,
		OrganizationID:    "org-1",
	}
	require.NoError(t, f.store.SaveWorkflow(ctx, workflow))

	for _, step := range steps {
		step.WorkflowID = workflow.ID
		step.IsActive = true
		require.NoError(t, f.store.SaveWorkflowStep(ctx, step))
	}

	f.store.SeedLead(&models.Lead{
		ID:             "lead-1",
		OrganizationID: "org-1",
		Name:           "Ayse Yilmaz",
		Email:          "ayse@example.com",
	})

	execution := &models.WorkflowExecution{
		WorkflowID:        workflow.ID,
		TriggerEntityType: models.EntityLead,
		TriggerEntityID:   "lead-1",
		Status:            models.ExecutionPending,
		ExecutionLog: []models.ExecutionLogEntry{{
			Timestamp: time.Now().UTC(),
			Action:    models.LogTriggered,
		}},
	}
	require.NoError(t, f.store.CreateExecution(ctx, execution))

	return execution
}

func logActions(execution *models.WorkflowExecution) []string {
	actions := make([]string, 0, len(execution.ExecutionLog))
	for _, entry := range execution.ExecutionLog {
		actions = append(actions, entry.Action)
	}

	return actions
}

func TestExecute_AllStepsSucceed(t *testing.T) {
	fixture := newExecutorFixture()
	fixture.registry.RegisterAction(&stubFactory{
		actionType: "test_action",
		execute: func(_ context.Context, executionCtx models.ExecutionContext) (map[string]any, error) {
			assert.Equal(t, "Ayse Yilmaz", executionCtx.EntityData["client_name"])

			return map[string]any{"details": "sent"}, nil
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "test_action"},
		&models.WorkflowStep{ID: "step-2", StepOrder: 2, ActionType: "test_action"},
	)

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Executed)
	assert.Equal(t, 0, outcome.Failed)

	stored, err := fixture.store.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, stored.Status)
	assert.NotNil(t, stored.StartedAt)
	assert.NotNil(t, stored.CompletedAt)
	assert.Equal(t, []string{
		models.LogTriggered,
		models.LogStepExecuted,
		models.LogStepExecuted,
	}, logActions(stored))
}

func TestExecute_FailingStepDoesNotAbortFollowingSteps(t *testing.T) {
	fixture := newExecutorFixture()
	fixture.registry.RegisterAction(&stubFactory{
		actionType: "flaky_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			return nil, errors.New("connection refused")
		},
	})
	fixture.registry.RegisterAction(&stubFactory{
		actionType: "ok_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			return map[string]any{"details": "ok"}, nil
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "flaky_action"},
		&models.WorkflowStep{ID: "step-2", StepOrder: 2, ActionType: "ok_action"},
	)

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Executed)
	assert.Equal(t, 1, outcome.Failed)

	stored, err := fixture.store.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, stored.Status)
	assert.Contains(t, logActions(stored), models.LogStepFailed)
	assert.Contains(t, logActions(stored), models.LogStepExecuted)
}

func TestExecute_AllStepsFailMarksExecutionFailed(t *testing.T) {
	fixture := newExecutorFixture()
	fixture.registry.RegisterAction(&stubFactory{
		actionType: "broken_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			return nil, errors.New("downstream unavailable")
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "broken_action"},
	)

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Failed)

	stored, err := fixture.store.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionFailed, stored.Status)
}

func TestExecute_RetriesTransientErrors(t *testing.T) {
	fixture := newExecutorFixture()

	var attempts atomic.Int32

	fixture.registry.RegisterAction(&stubFactory{
		actionType: "recovering_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			if attempts.Add(1) < 3 {
				return nil, errors.New("timeout talking to provider")
			}

			return map[string]any{"details": "ok"}, nil
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "recovering_action"},
	)

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Executed)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestExecute_NonRetryableErrorFailsImmediately(t *testing.T) {
	fixture := newExecutorFixture()

	var attempts atomic.Int32

	fixture.registry.RegisterAction(&stubFactory{
		actionType: "rejected_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			attempts.Add(1)

			return nil, errors.New("validation failed: missing recipient")
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "rejected_action"},
	)

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Failed)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestExecute_TimeoutMarksExecutionFailed(t *testing.T) {
	fixture := newExecutorFixture()
	fixture.executor.WithTimeout(50 * time.Millisecond)

	fixture.registry.RegisterAction(&stubFactory{
		actionType: "slow_action",
		execute: func(ctx context.Context, _ models.ExecutionContext) (map[string]any, error) {
			select {
			case <-time.After(5 * time.Second):
				return map[string]any{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "slow_action"},
	)

	_, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.ErrorIs(t, err, ErrExecutionTimeout)

	stored, lookupErr := fixture.store.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.ExecutionFailed, stored.Status)
	assert.Contains(t, stored.ErrorMessage, "deadline")
}

func TestExecute_DeletedEntityStillRunsSteps(t *testing.T) {
	fixture := newExecutorFixture()

	var sawEmptyContext atomic.Bool

	fixture.registry.RegisterAction(&stubFactory{
		actionType: "message_action",
		execute: func(_ context.Context, executionCtx models.ExecutionContext) (map[string]any, error) {
			sawEmptyContext.Store(len(executionCtx.EntityData) == 0)

			return map[string]any{"details": "skipped: no client email"}, nil
		},
	})
	fixture.registry.RegisterAction(&stubFactory{
		actionType: "writeback_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			return nil, errors.New("validation failed: entity not found")
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "message_action"},
		&models.WorkflowStep{ID: "step-2", StepOrder: 2, ActionType: "writeback_action"},
	)

	// The lead disappeared between dispatch and execution.
	execution.TriggerEntityID = "lead-gone"
	require.NoError(t, fixture.store.UpdateExecution(context.Background(), execution))

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Executed)
	assert.Equal(t, 1, outcome.Failed)
	assert.True(t, sawEmptyContext.Load())

	stored, err := fixture.store.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionCompleted, stored.Status)
	assert.Equal(t, []string{
		models.LogTriggered,
		models.LogStepExecuted,
		models.LogStepFailed,
	}, logActions(stored))
}

func TestExecute_EmbeddedSessionMismatchAbortsExecution(t *testing.T) {
	fixture := newExecutorFixture()

	var stepRan atomic.Bool

	fixture.registry.RegisterAction(&stubFactory{
		actionType: "message_action",
		execute: func(_ context.Context, _ models.ExecutionContext) (map[string]any, error) {
			stepRan.Store(true)

			return nil, nil
		},
	})

	execution := fixture.seedExecution(t,
		&models.WorkflowStep{ID: "step-1", StepOrder: 1, ActionType: "message_action"},
	)

	execution.TriggerEntityType = models.EntitySession
	execution.TriggerEntityID = "s-2"
	execution.ExecutionLog[0].TriggerData = map[string]any{
		"session_data":             map[string]any{"session_date": "2026-10-01"},
		"lead_data":                map[string]any{"name": "Ayse"},
		"debug_session_validation": map[string]any{"expected_session_id": "s-1"},
	}
	require.NoError(t, fixture.store.UpdateExecution(context.Background(), execution))

	_, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.ErrorIs(t, err, ErrEmbeddedSessionMismatch)
	assert.False(t, stepRan.Load())

	stored, lookupErr := fixture.store.ExecutionByID(context.Background(), execution.ID)
	require.NoError(t, lookupErr)
	assert.Equal(t, models.ExecutionFailed, stored.Status)
}

func TestExecute_TerminalExecutionIsNoOp(t *testing.T) {
	fixture := newExecutorFixture()

	execution := fixture.seedExecution(t)
	execution.Status = models.ExecutionCompleted
	require.NoError(t, fixture.store.UpdateExecution(context.Background(), execution))

	outcome, err := fixture.executor.Execute(context.Background(), execution.ID)

	require.NoError(t, err)
	assert.Equal(t, &StepOutcome{}, outcome)
}

func TestExecute_UnknownExecution(t *testing.T) {
	fixture := newExecutorFixture()

	_, err := fixture.executor.Execute(context.Background(), "missing")

	require.Error(t, err)
}
