package models

import "time"

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// Log entry actions.
const (
	LogTriggered    = "triggered"
	LogStepExecuted = "step_executed"
	LogStepSkipped  = "step_skipped"
	LogStepFailed   = "step_failed"
)

// ExecutionLogEntry is one timestamped entry in an execution's append-only log.
type ExecutionLogEntry struct {
	Timestamp    time.Time      `json:"timestamp"`
	Action       string         `json:"action"`
	StepID       string         `json:"step_id,omitempty"`
	StepOrder    int            `json:"step_order,omitempty"`
	ActionType   ActionType     `json:"action_type,omitempty"`
	DelayMinutes int            `json:"delay_minutes,omitempty"`
	Details      string         `json:"details,omitempty"`
	Error        string         `json:"error,omitempty"`
	TriggerData  map[string]any `json:"trigger_data,omitempty"`
	Fingerprint  string         `json:"fingerprint,omitempty"`
}

// WorkflowExecution is one firing attempt of a workflow for one event.
// The first log entry's trigger_data is the canonical record of the event
// that caused the firing; the executor is its only mutator after creation.
type WorkflowExecution struct {
	ID                string              `json:"id"`
	WorkflowID        string              `json:"workflow_id"`
	TriggerEntityType EntityType          `json:"trigger_entity_type"`
	TriggerEntityID   string              `json:"trigger_entity_id"`
	Status            ExecutionStatus     `json:"status"`
	ExecutionLog      []ExecutionLogEntry `json:"execution_log"`
	StartedAt         *time.Time          `json:"started_at,omitempty"`
	CompletedAt       *time.Time          `json:"completed_at,omitempty"`
	ErrorMessage      string              `json:"error_message,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// TriggerData returns the payload captured when the execution was created.
func (e *WorkflowExecution) TriggerData() map[string]any {
	if len(e.ExecutionLog) == 0 {
		return nil
	}

	return e.ExecutionLog[0].TriggerData
}

// AppendLog adds an entry to the execution log.
func (e *WorkflowExecution) AppendLog(entry ExecutionLogEntry) {
	e.ExecutionLog = append(e.ExecutionLog, entry)
}

// Terminal reports whether the execution reached a final state.
func (e *WorkflowExecution) Terminal() bool {
	return e.Status == ExecutionCompleted || e.Status == ExecutionFailed
}
