package models

import "time"

// Session is a photography session row.
type Session struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	LeadID         string `json:"lead_id,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	Name           string `json:"name,omitempty"`
	SessionDate    string `json:"session_date"` // YYYY-MM-DD
	SessionTime    string `json:"session_time"` // HH:MM or HH:MM:SS
	Location       string `json:"location,omitempty"`
	Notes          string `json:"notes,omitempty"`
	Status         string `json:"status,omitempty"`
}

// Lead is a sales lead row.
type Lead struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	StatusID       string `json:"status_id,omitempty"`
	AssigneeID     string `json:"assignee_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// Project groups sessions and galleries for one client engagement.
type Project struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organization_id"`
	LeadID         string `json:"lead_id,omitempty"`
	Name           string `json:"name"`
	StatusID       string `json:"status_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// Activity is a timeline entry (reminders created by workflow steps land here).
type Activity struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Type           string    `json:"type"`
	Content        string    `json:"content"`
	ReminderDate   string    `json:"reminder_date,omitempty"` // YYYY-MM-DD
	ReminderTime   string    `json:"reminder_time,omitempty"` // HH:MM:SS
	ProjectID      string    `json:"project_id,omitempty"`
	LeadID         string    `json:"lead_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Notification is a pending row for the generic notification pipeline, used
// as the fallback delivery path when templated email sending fails.
type Notification struct {
	ID               string         `json:"id"`
	OrganizationID   string         `json:"organization_id"`
	UserID           string         `json:"user_id"`
	NotificationType string         `json:"notification_type"`
	DeliveryMethod   string         `json:"delivery_method"`
	Status           string         `json:"status"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
