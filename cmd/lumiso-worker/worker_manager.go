package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/eventbus"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/events"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/otelhelper"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/registry"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/workflow"
)

type WorkerManager struct {
	id          string
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
}

func NewWorkerManager(
	id string,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	registry *registry.Registry,
) *WorkerManager {
	return &WorkerManager{
		id:          id,
		logger:      logger.With("module", "lumiso-worker", "worker_id", id),
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager")

	tracer, err := otelhelper.NewTracer(ctx, "lumiso-worker")
	if err != nil {
		w.logger.WarnContext(ctx, "Tracing disabled", "error", err)
	} else {
		w.tracer = tracer
	}

	err = w.eventBus.Handle(events.ExecutionScheduledEvent, w.handleExecutionScheduled)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleExecutionScheduled(ctx context.Context, event any) error {
	scheduledEvent, ok := event.(*events.ExecutionScheduled)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for ExecutionScheduled")

		return nil
	}

	logger := w.logger.With(
		"workflow_id", scheduledEvent.WorkflowID,
		"execution_id", scheduledEvent.ExecutionID,
		"event_id", scheduledEvent.ID,
	)
	logger.InfoContext(ctx, "Processing scheduled execution")

	var span trace.Span
	if w.tracer != nil {
		ctx, span = otelhelper.StartSpan(ctx, w.tracer, "execution.run",
			attribute.String(otelhelper.WorkflowIDKey, scheduledEvent.WorkflowID),
			attribute.String(otelhelper.ExecutionIDKey, scheduledEvent.ExecutionID),
			attribute.String(otelhelper.WorkerIDKey, w.id),
		)
		defer span.End()
	}

	resolver := workflow.NewEntityResolver(w.persistence, logger)
	executor := workflow.NewExecutor(w.persistence, w.registry, resolver, logger)

	startedAt := time.Now()

	outcome, err := executor.Execute(ctx, scheduledEvent.ExecutionID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to execute workflow", "error", err)

		if span != nil {
			otelhelper.SetError(span, err)
		}

		failedEvent := events.ExecutionFailed{
			BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, scheduledEvent.WorkflowID),
			ExecutionID: scheduledEvent.ExecutionID,
			Error:       err.Error(),
		}
		failedEvent.WorkerID = w.id

		publishErr := w.eventBus.Publish(ctx, scheduledEvent.WorkflowID, failedEvent)
		if publishErr != nil {
			logger.ErrorContext(ctx, "Failed to publish execution failed event", "error", publishErr)
		}

		return err
	}

	completedEvent := events.ExecutionCompleted{
		BaseEvent:      events.NewBaseEvent(events.ExecutionCompletedEvent, scheduledEvent.WorkflowID),
		ExecutionID:    scheduledEvent.ExecutionID,
		StepsExecuted:  outcome.Executed,
		StepsSkipped:   outcome.Skipped,
		StepsFailed:    outcome.Failed,
		Duration:       time.Since(startedAt),
		FinishedStatus: w.finishedStatus(ctx, scheduledEvent.ExecutionID),
	}
	completedEvent.WorkerID = w.id

	publishErr := w.eventBus.Publish(ctx, scheduledEvent.WorkflowID, completedEvent)
	if publishErr != nil {
		logger.ErrorContext(ctx, "Failed to publish execution completed event", "error", publishErr)
	}

	return nil
}

func (w *WorkerManager) finishedStatus(ctx context.Context, executionID string) string {
	execution, err := w.persistence.ExecutionByID(ctx, executionID)
	if err != nil {
		return ""
	}

	return string(execution.Status)
}
