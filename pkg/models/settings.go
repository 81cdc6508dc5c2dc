package models

// Supported display formats for organization settings.
const (
	DateFormatMDYSlash = "MM/DD/YYYY"
	DateFormatDMYSlash = "DD/MM/YYYY"
	DateFormatYMDDash  = "YYYY-MM-DD"
	DateFormatDMYDash  = "DD-MM-YYYY"
	DateFormatMDYDash  = "MM-DD-YYYY"

	TimeFormat12h = "12h"
	TimeFormat24h = "24h"
)

// OrganizationSettings holds per-organization display preferences consumed
// by message steps and the past-date guard.
type OrganizationSettings struct {
	OrganizationID string `json:"organization_id"`
	BusinessName   string `json:"business_name,omitempty"`
	DateFormat     string `json:"date_format"`
	TimeFormat     string `json:"time_format"`
	Timezone       string `json:"timezone"`
}
