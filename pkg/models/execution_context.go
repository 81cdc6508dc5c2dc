package models

// ExecutionContext is the state handed to step actions: the execution being
// run, its parent workflow, and the flat entity context used for templating.
type ExecutionContext struct {
	ExecutionID string             `json:"execution_id"`
	Workflow    *Workflow          `json:"workflow"`
	Execution   *WorkflowExecution `json:"execution"`
	EntityData  map[string]string  `json:"entity_data,omitempty"`
}
