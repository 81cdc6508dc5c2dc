package models

import "time"

// ReminderStatus is the lifecycle state of a scheduled session reminder.
type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

// ScheduledSessionReminder is a future reminder for a session, created by the
// scheduling procedure and claimed by the reminder processor.
type ScheduledSessionReminder struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id"`
	WorkflowID     string         `json:"workflow_id"`
	OrganizationID string         `json:"organization_id"`
	ReminderType   string         `json:"reminder_type"`
	ScheduledFor   time.Time      `json:"scheduled_for"`
	Status         ReminderStatus `json:"status"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
