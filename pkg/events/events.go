// Package events defines the event types exchanged between the dispatcher
// and the execution worker.
package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

type EventType string

// Topic carries every engine event.
const Topic = "lumiso.automation.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// ExecutionScheduledEvent is published by the dispatcher once an
	// execution row exists; a worker picks it up and runs the steps.
	ExecutionScheduledEvent EventType = "execution.scheduled"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
)

type BaseEvent struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
	WorkflowID     string    `json:"workflow_id"`
	OrganizationID string    `json:"organization_id,omitempty"`
	WorkerID       string    `json:"worker_id,omitempty"`
}

// ExecutionScheduled asks a worker to run a freshly created execution.
type ExecutionScheduled struct {
	BaseEvent

	ExecutionID string            `json:"execution_id"`
	EntityType  models.EntityType `json:"entity_type"`
	EntityID    string            `json:"entity_id"`
	TriggerData map[string]any    `json:"trigger_data,omitempty"`
}

func (e ExecutionScheduled) GetType() EventType {
	return ExecutionScheduledEvent
}

// ExecutionCompleted reports a finished execution.
type ExecutionCompleted struct {
	BaseEvent

	ExecutionID    string        `json:"execution_id"`
	StepsExecuted  int           `json:"steps_executed"`
	StepsSkipped   int           `json:"steps_skipped"`
	StepsFailed    int           `json:"steps_failed"`
	Duration       time.Duration `json:"duration"`
	FinishedStatus string        `json:"finished_status"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

// ExecutionFailed reports an execution that could not finish.
type ExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	Error       string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// NewBaseEvent creates a base event with a fresh ID and timestamp.
func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}
