// Package models defines the core domain models for studio automation workflows.
package models

import "time"

// TriggerType identifies the business event a workflow reacts to.
type TriggerType string

const (
	TriggerSessionScheduled  TriggerType = "session_scheduled"
	TriggerLeadStatusChanged TriggerType = "lead_status_changed"
	TriggerSessionReminder   TriggerType = "session_reminder"
	TriggerProjectCompleted  TriggerType = "project_completed"
)

// EntityType identifies the business object a workflow targets.
type EntityType string

const (
	EntitySession EntityType = "session"
	EntityProject EntityType = "project"
	EntityLead    EntityType = "lead"
)

// Workflow is a stored automation definition scoped to an organization.
// It is immutable during a dispatch cycle; edits happen through the admin API.
type Workflow struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"               validate:"required,min=3"`
	TriggerType       TriggerType    `json:"trigger_type"       validate:"required"`
	TriggerEntityType EntityType     `json:"trigger_entity_type" validate:"required"`
	TriggerConditions map[string]any `json:"trigger_conditions,omitempty"`
	IsActive          bool           `json:"is_active"`
	OrganizationID    string         `json:"organization_id"    validate:"required"`
	UserID            string         `json:"user_id"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
