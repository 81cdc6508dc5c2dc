package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/registry"
)

// DefaultExecutionTimeout bounds one execution's wall-clock run.
const DefaultExecutionTimeout = 5 * time.Minute

// ErrExecutionTimeout marks an execution aborted by the deadline.
var ErrExecutionTimeout = errors.New("workflow execution timed out")

// StepOutcome tallies what happened to the steps of one execution.
type StepOutcome struct {
	Executed int
	Skipped  int
	Failed   int
}

// Executor runs the ordered steps of one execution with per-step retry and
// a global deadline. One step's permanent failure never aborts the steps
// after it.
type Executor struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	resolver    *EntityResolver
	retry       RetryStrategy
	timeout     time.Duration
	logger      *slog.Logger
}

func NewExecutor(p persistence.Persistence, reg *registry.Registry, resolver *EntityResolver, logger *slog.Logger) *Executor {
	return &Executor{
		persistence: p,
		registry:    reg,
		resolver:    resolver,
		retry:       DefaultRetryStrategy(),
		timeout:     DefaultExecutionTimeout,
		logger:      logger.With("module", "executor"),
	}
}

// WithRetryStrategy replaces the step retry policy.
func (e *Executor) WithRetryStrategy(strategy RetryStrategy) *Executor {
	e.retry = strategy

	return e
}

// WithTimeout replaces the global execution deadline.
func (e *Executor) WithTimeout(timeout time.Duration) *Executor {
	e.timeout = timeout

	return e
}

// Execute runs one execution to a terminal status. Re-entering a terminal
// execution is a no-op.
func (e *Executor) Execute(ctx context.Context, executionID string) (*StepOutcome, error) {
	execution, err := e.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load execution: %w", err)
	}

	if execution.Terminal() {
		e.logger.InfoContext(ctx, "execution already finished, skipping",
			"execution_id", executionID, "status", execution.Status)

		return &StepOutcome{}, nil
	}

	workflow, err := e.persistence.WorkflowByID(ctx, execution.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}

	startedAt := time.Now().UTC()
	execution.Status = models.ExecutionRunning
	execution.StartedAt = &startedAt

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		return nil, fmt.Errorf("failed to mark execution running: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type runResult struct {
		outcome *StepOutcome
		err     error
	}

	done := make(chan runResult, 1)

	go func() {
		outcome, runErr := e.runSteps(runCtx, workflow, execution)
		done <- runResult{outcome: outcome, err: runErr}
	}()

	select {
	case result := <-done:
		if result.err != nil {
			if errors.Is(result.err, context.DeadlineExceeded) {
				message := fmt.Sprintf("execution exceeded %s deadline", e.timeout)
				e.finish(ctx, execution, models.ExecutionFailed, message)

				return result.outcome, fmt.Errorf("%w after %s", ErrExecutionTimeout, e.timeout)
			}

			e.finish(ctx, execution, models.ExecutionFailed, result.err.Error())

			return result.outcome, result.err
		}

		status := models.ExecutionCompleted
		if result.outcome.Failed > 0 && result.outcome.Executed == 0 {
			status = models.ExecutionFailed
		}

		e.finish(ctx, execution, status, "")

		return result.outcome, nil
	case <-runCtx.Done():
		message := fmt.Sprintf("execution exceeded %s deadline", e.timeout)
		e.finish(ctx, execution, models.ExecutionFailed, message)

		return nil, fmt.Errorf("%w after %s", ErrExecutionTimeout, e.timeout)
	}
}

func (e *Executor) runSteps(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution) (*StepOutcome, error) {
	steps, err := e.persistence.StepsByWorkflow(ctx, workflow.ID)
	if err != nil {
		return &StepOutcome{}, fmt.Errorf("failed to load workflow steps: %w", err)
	}

	entityData, err := e.resolver.Resolve(ctx, execution.TriggerEntityType, execution.TriggerEntityID, execution.TriggerData())
	if err != nil {
		if errors.Is(err, ErrEmbeddedSessionMismatch) {
			return &StepOutcome{}, err
		}

		// The entity may have been deleted between dispatch and execution.
		// Steps still run against an empty context: message steps skip when
		// no recipient resolves, entity writes fail and log per step.
		e.logger.WarnContext(ctx, "entity data unavailable, running steps with empty context",
			"execution_id", execution.ID,
			"entity_type", execution.TriggerEntityType,
			"entity_id", execution.TriggerEntityID,
			"error", err)

		entityData = map[string]string{}
	}

	executionCtx := models.ExecutionContext{
		ExecutionID: execution.ID,
		Workflow:    workflow,
		Execution:   execution,
		EntityData:  entityData,
	}

	outcome := &StepOutcome{}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		if !EvaluateStepConditions(step.Conditions, execution) {
			outcome.Skipped++
			e.appendLog(ctx, execution, models.ExecutionLogEntry{
				Timestamp:  time.Now().UTC(),
				Action:     models.LogStepSkipped,
				StepID:     step.ID,
				StepOrder:  step.StepOrder,
				ActionType: step.ActionType,
				Details:    "step conditions not met",
			})

			continue
		}

		result, stepErr := e.executeStepWithRetry(ctx, step, executionCtx)
		if stepErr != nil {
			outcome.Failed++
			e.appendLog(ctx, execution, models.ExecutionLogEntry{
				Timestamp:    time.Now().UTC(),
				Action:       models.LogStepFailed,
				StepID:       step.ID,
				StepOrder:    step.StepOrder,
				ActionType:   step.ActionType,
				DelayMinutes: step.DelayMinutes,
				Error:        stepErr.Error(),
			})

			continue
		}

		outcome.Executed++
		e.appendLog(ctx, execution, models.ExecutionLogEntry{
			Timestamp:    time.Now().UTC(),
			Action:       models.LogStepExecuted,
			StepID:       step.ID,
			StepOrder:    step.StepOrder,
			ActionType:   step.ActionType,
			DelayMinutes: step.DelayMinutes,
			Details:      resultDetails(result),
		})
	}

	return outcome, nil
}

// executeStepWithRetry attempts a step up to the retry policy's budget.
// Errors carrying a non-retryable marker propagate without further attempts.
func (e *Executor) executeStepWithRetry(ctx context.Context, step *models.WorkflowStep, executionCtx models.ExecutionContext) (map[string]any, error) {
	if step.DelayMinutes > 0 {
		// Intended staggering is recorded in the log entry but not awaited.
		e.logger.InfoContext(ctx, "step declares a delay",
			"step_id", step.ID, "delay_minutes", step.DelayMinutes)
	}

	action, err := e.registry.CreateAction(string(step.ActionType), step.ActionConfig)
	if err != nil {
		return nil, err
	}

	var lastErr error

	for attempt := 1; attempt <= e.retry.MaxAttempts(); attempt++ {
		result, execErr := action.Execute(ctx, executionCtx, e.logger)
		if execErr == nil {
			return result, nil
		}

		lastErr = execErr

		if IsNonRetryable(execErr) {
			e.logger.WarnContext(ctx, "non-retryable step error",
				"step_id", step.ID, "error", execErr)

			return nil, execErr
		}

		e.logger.WarnContext(ctx, "step attempt failed",
			"step_id", step.ID, "attempt", attempt, "error", execErr)

		if attempt < e.retry.MaxAttempts() {
			if err := sleepContext(ctx, e.retry.SleepDuration(attempt, execErr)); err != nil {
				return nil, err
			}
		}
	}

	return nil, lastErr
}

// appendLog persists a log entry immediately so the audit trail survives a
// later crash. Steps run sequentially, so the read-modify-write is safe.
func (e *Executor) appendLog(ctx context.Context, execution *models.WorkflowExecution, entry models.ExecutionLogEntry) {
	execution.AppendLog(entry)

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist execution log entry",
			"execution_id", execution.ID, "error", err)
	}
}

func (e *Executor) finish(ctx context.Context, execution *models.WorkflowExecution, status models.ExecutionStatus, message string) {
	completedAt := time.Now().UTC()
	execution.Status = status
	execution.CompletedAt = &completedAt
	execution.ErrorMessage = message

	if err := e.persistence.UpdateExecution(ctx, execution); err != nil {
		e.logger.ErrorContext(ctx, "failed to persist final execution status",
			"execution_id", execution.ID, "status", status, "error", err)
	}
}

func resultDetails(result map[string]any) string {
	if detail, ok := result["details"].(string); ok {
		return detail
	}

	return ""
}

func sleepContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
