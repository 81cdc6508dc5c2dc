package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
)

// ErrEmbeddedSessionMismatch marks embedded session data that belongs to a
// different session than the execution targets. Unlike a missing entity,
// this aborts the execution outright.
var ErrEmbeddedSessionMismatch = errors.New("embedded session validation failed")

// EntityResolver assembles the flat key-value context message templates are
// rendered against.
type EntityResolver struct {
	repo   persistence.EntityRepository
	logger *slog.Logger
}

func NewEntityResolver(repo persistence.EntityRepository, logger *slog.Logger) *EntityResolver {
	return &EntityResolver{repo: repo, logger: logger.With("module", "entity_resolver")}
}

// Resolve returns the template context for an entity. When the trigger
// payload embeds session_data and lead_data snapshots (the reminder
// processor's re-entry path) those are used verbatim instead of a fresh
// read, so the message reflects exactly what the reminder was computed
// against. An embedded expected_session_id that disagrees with the entity
// id is a hard error: it means the reminder would describe the wrong
// session.
func (r *EntityResolver) Resolve(ctx context.Context, entityType models.EntityType, entityID string, triggerData map[string]any) (map[string]string, error) {
	sessionData, hasSession := mapField(triggerData, "session_data")
	leadData, hasLead := mapField(triggerData, "lead_data")

	if hasSession && hasLead {
		if err := assertExpectedSession(triggerData, entityID); err != nil {
			return nil, err
		}

		return flattenEmbedded(sessionData, leadData), nil
	}

	return r.resolveFromStore(ctx, entityType, entityID)
}

func assertExpectedSession(triggerData map[string]any, entityID string) error {
	validation, ok := mapField(triggerData, "debug_session_validation")
	if !ok {
		return nil
	}

	expected := stringField(validation, "expected_session_id")
	if expected != "" && expected != entityID {
		return fmt.Errorf("%w: embedded session data belongs to session %s, not %s", ErrEmbeddedSessionMismatch, expected, entityID)
	}

	return nil
}

func flattenEmbedded(sessionData, leadData map[string]any) map[string]string {
	data := make(map[string]string)

	setIfPresent(data, "session_name", sessionData, "name")
	setIfPresent(data, "session_date", sessionData, "session_date")
	setIfPresent(data, "session_time", sessionData, "session_time")
	setIfPresent(data, "session_location", sessionData, "location")
	setIfPresent(data, "session_notes", sessionData, "notes")
	setIfPresent(data, "session_status", sessionData, "status")

	setIfPresent(data, "client_name", leadData, "name")
	setIfPresent(data, "client_email", leadData, "email")
	setIfPresent(data, "client_phone", leadData, "phone")

	return data
}

func (r *EntityResolver) resolveFromStore(ctx context.Context, entityType models.EntityType, entityID string) (map[string]string, error) {
	switch entityType {
	case models.EntitySession:
		return r.resolveSession(ctx, entityID)
	case models.EntityLead:
		data := make(map[string]string)

		if err := r.addLead(ctx, data, entityID); err != nil {
			return nil, err
		}

		return data, nil
	case models.EntityProject:
		return r.resolveProject(ctx, entityID)
	default:
		return nil, fmt.Errorf("unknown entity type %q", entityType)
	}
}

func (r *EntityResolver) resolveSession(ctx context.Context, sessionID string) (map[string]string, error) {
	session, err := r.repo.SessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	data := map[string]string{
		"session_name":     session.Name,
		"session_date":     session.SessionDate,
		"session_time":     session.SessionTime,
		"session_location": session.Location,
		"session_notes":    session.Notes,
		"session_status":   session.Status,
	}

	if session.LeadID != "" {
		if err := r.addLead(ctx, data, session.LeadID); err != nil {
			return nil, err
		}
	}

	if session.ProjectID != "" {
		project, err := r.repo.ProjectByID(ctx, session.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve project: %w", err)
		}

		data["project_name"] = project.Name
	}

	return data, nil
}

func (r *EntityResolver) resolveProject(ctx context.Context, projectID string) (map[string]string, error) {
	project, err := r.repo.ProjectByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}

	data := map[string]string{"project_name": project.Name}

	if project.LeadID != "" {
		if err := r.addLead(ctx, data, project.LeadID); err != nil {
			return nil, err
		}
	}

	return data, nil
}

func (r *EntityResolver) addLead(ctx context.Context, data map[string]string, leadID string) error {
	lead, err := r.repo.LeadByID(ctx, leadID)
	if err != nil {
		return fmt.Errorf("failed to resolve lead: %w", err)
	}

	data["client_name"] = lead.Name
	data["client_email"] = lead.Email
	data["client_phone"] = lead.Phone

	fields, err := r.repo.LeadFieldValues(ctx, leadID)
	if err != nil {
		return fmt.Errorf("failed to resolve lead fields: %w", err)
	}

	for key, value := range fields {
		data["lead_"+key] = value
	}

	return nil
}

// ClientEmail returns the recipient address from the resolved context,
// checking the fallback keys message steps accept.
func ClientEmail(data map[string]string) string {
	for _, key := range []string{"client_email", "email", "lead_email"} {
		if data[key] != "" {
			return data[key]
		}
	}

	return ""
}

func mapField(data map[string]any, key string) (map[string]any, bool) {
	if data == nil {
		return nil, false
	}

	value, ok := data[key].(map[string]any)

	return value, ok
}

func setIfPresent(target map[string]string, targetKey string, source map[string]any, sourceKey string) {
	if value := stringField(source, sourceKey); value != "" {
		target[targetKey] = value
	}
}
