package models

// ActionType identifies the kind of side effect a step performs.
type ActionType string

const (
	ActionSendNotification ActionType = "send_notification"
	ActionSendEmail        ActionType = "send_email"
	ActionSendSMS          ActionType = "send_sms"
	ActionSendWhatsApp     ActionType = "send_whatsapp"
	ActionCreateReminder   ActionType = "create_reminder"
	ActionUpdateStatus     ActionType = "update_status"
)

// IsSendMessage reports whether the action delivers a templated message.
func (a ActionType) IsSendMessage() bool {
	switch a {
	case ActionSendNotification, ActionSendEmail, ActionSendSMS, ActionSendWhatsApp:
		return true
	default:
		return false
	}
}

// WorkflowStep is one ordered action inside a workflow. Steps are read-only
// to the executor; step_order defines the execution sequence.
type WorkflowStep struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflow_id"  validate:"required"`
	StepOrder    int            `json:"step_order"`
	ActionType   ActionType     `json:"action_type"  validate:"required"`
	ActionConfig map[string]any `json:"action_config"`
	DelayMinutes int            `json:"delay_minutes,omitempty"`
	Conditions   map[string]any `json:"conditions,omitempty"`
	IsActive     bool           `json:"is_active"`
}
