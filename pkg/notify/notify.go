// Package notify delivers workflow messages to the outbound channels:
// templated email, SMS, WhatsApp and in-app notifications.
package notify

import "context"

// TemplatedEmail is a request to the templated email delivery service.
type TemplatedEmail struct {
	TemplateID     string            `json:"template_id,omitempty"`
	To             string            `json:"recipient_email"`
	RecipientName  string            `json:"recipient_name,omitempty"`
	Subject        string            `json:"subject"`
	Body           string            `json:"body"`
	OrganizationID string            `json:"organization_id"`
	ExecutionID    string            `json:"workflow_execution_id,omitempty"`
	TemplateData   map[string]string `json:"template_data,omitempty"`
}

// Message is a non-email outbound message.
type Message struct {
	Channel        string `json:"channel"` // "sms", "whatsapp" or "in_app"
	To             string `json:"to"`
	Body           string `json:"body"`
	OrganizationID string `json:"organization_id"`
	UserID         string `json:"user_id,omitempty"`
}

// Mailer sends templated email.
type Mailer interface {
	SendTemplated(ctx context.Context, email TemplatedEmail) error
}

// Sender delivers non-email messages.
type Sender interface {
	Send(ctx context.Context, message Message) error
}
