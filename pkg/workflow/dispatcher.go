package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/eventbus"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/events"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/settings"
)

// duplicateWindow is how far back the dispatcher looks for executions with
// a matching trigger fingerprint.
const duplicateWindow = 60 * time.Second

// SkipSessionInPast marks a dispatch aborted by the past-date guard.
const SkipSessionInPast = "session_in_past"

// TriggerRequest is one business event entering the engine.
type TriggerRequest struct {
	TriggerType    models.TriggerType `json:"trigger_type"        validate:"required"`
	EntityType     models.EntityType  `json:"trigger_entity_type" validate:"required"`
	EntityID       string             `json:"trigger_entity_id"   validate:"required"`
	OrganizationID string             `json:"organization_id"     validate:"required"`
	TriggerData    map[string]any     `json:"trigger_data,omitempty"`
}

// DispatchResult reports what a dispatch call did.
type DispatchResult struct {
	TriggeredWorkflows int      `json:"triggered_workflows"`
	ExecutionIDs       []string `json:"execution_ids,omitempty"`
	Skipped            string   `json:"skipped,omitempty"`
}

// Dispatcher finds the workflows matching an event, suppresses duplicate
// firings and hands fresh executions to the worker via the event bus. The
// dispatch call returns once execution rows exist; step execution is
// fire-and-forget from the caller's perspective.
type Dispatcher struct {
	persistence persistence.Persistence
	settings    *settings.Service
	publisher   eventbus.EventPublisher
	logger      *slog.Logger
}

func NewDispatcher(p persistence.Persistence, settingsService *settings.Service, publisher eventbus.EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		persistence: p,
		settings:    settingsService,
		publisher:   publisher,
		logger:      logger.With("module", "dispatcher"),
	}
}

// Dispatch runs the trigger flow: candidate selection, past-date guard,
// reminder scheduling, condition evaluation, duplicate suppression and
// execution creation.
func (d *Dispatcher) Dispatch(ctx context.Context, req TriggerRequest) (*DispatchResult, error) {
	logger := d.logger.With(
		"trigger_type", req.TriggerType,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
		"organization_id", req.OrganizationID,
	)

	candidates, forced, err := d.candidateWorkflows(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.TriggerType == models.TriggerSessionScheduled && req.EntityType == models.EntitySession {
		past, err := d.sessionInPast(ctx, req)
		if err != nil {
			return nil, err
		}

		if past {
			logger.InfoContext(ctx, "session is in the past, skipping dispatch")

			return &DispatchResult{Skipped: SkipSessionInPast}, nil
		}

		d.scheduleReminders(ctx, req, logger)
	}

	result := &DispatchResult{ExecutionIDs: make([]string, 0, len(candidates))}
	batchSeen := make(map[string]struct{})

	for _, candidate := range candidates {
		if !EvaluateTriggerConditions(candidate.TriggerConditions, req.TriggerData) {
			logger.DebugContext(ctx, "trigger conditions did not match", "workflow_id", candidate.ID)

			continue
		}

		fingerprint := Fingerprint(candidate.ID, req.EntityType, req.EntityID, req.TriggerData)

		if !forced {
			if _, seen := batchSeen[fingerprint]; seen {
				logger.DebugContext(ctx, "duplicate fingerprint within batch", "workflow_id", candidate.ID)

				continue
			}

			duplicate, err := d.hasRecentDuplicate(ctx, candidate.ID, req)
			if err != nil {
				return nil, err
			}

			if duplicate {
				logger.InfoContext(ctx, "recent duplicate execution, skipping", "workflow_id", candidate.ID)

				continue
			}
		}

		batchSeen[fingerprint] = struct{}{}

		execution, err := d.createExecution(ctx, candidate, req, fingerprint)
		if err != nil {
			return nil, err
		}

		d.scheduleExecution(ctx, candidate, req, execution, logger)

		result.TriggeredWorkflows++
		result.ExecutionIDs = append(result.ExecutionIDs, execution.ID)
	}

	logger.InfoContext(ctx, "dispatch finished", "triggered_workflows", result.TriggeredWorkflows)

	return result, nil
}

// candidateWorkflows loads the workflows a dispatch call considers. Explicit
// workflow ids in the payload force-target those workflows and bypass the
// duplicate checks.
func (d *Dispatcher) candidateWorkflows(ctx context.Context, req TriggerRequest) ([]*models.Workflow, bool, error) {
	targeted := explicitWorkflowIDs(req.TriggerData)
	if len(targeted) > 0 {
		workflows := make([]*models.Workflow, 0, len(targeted))

		for _, workflowID := range targeted {
			workflow, err := d.persistence.WorkflowByID(ctx, workflowID)
			if err != nil {
				if persistence.IsWorkflowNotFound(err) {
					d.logger.WarnContext(ctx, "targeted workflow not found", "workflow_id", workflowID)

					continue
				}

				return nil, false, fmt.Errorf("failed to load targeted workflow: %w", err)
			}

			if workflow.OrganizationID != req.OrganizationID || !workflow.IsActive {
				continue
			}

			workflows = append(workflows, workflow)
		}

		return workflows, true, nil
	}

	workflows, err := d.persistence.ActiveWorkflowsByTrigger(ctx, req.OrganizationID, req.TriggerType)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load active workflows: %w", err)
	}

	return workflows, false, nil
}

func explicitWorkflowIDs(triggerData map[string]any) []string {
	if triggerData == nil {
		return nil
	}

	if id, ok := triggerData["workflow_id"].(string); ok && id != "" {
		return []string{id}
	}

	raw, ok := triggerData["workflow_ids"].([]any)
	if !ok {
		return nil
	}

	ids := make([]string, 0, len(raw))

	for _, value := range raw {
		if id, ok := value.(string); ok && id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

// sessionInPast resolves the session's scheduled moment in the owning
// organization's timezone. Embedded session_data wins over a fresh read.
func (d *Dispatcher) sessionInPast(ctx context.Context, req TriggerRequest) (bool, error) {
	sessionDate, sessionTime := embeddedSessionMoment(req.TriggerData)

	if sessionDate == "" {
		session, err := d.persistence.SessionByID(ctx, req.EntityID)
		if err != nil {
			if persistence.IsEntityNotFound(err) {
				return false, nil
			}

			return false, fmt.Errorf("failed to load session for past-date guard: %w", err)
		}

		sessionDate, sessionTime = session.SessionDate, session.SessionTime
	}

	if sessionDate == "" {
		return false, nil
	}

	location, err := d.settings.Location(ctx, req.OrganizationID)
	if err != nil {
		return false, err
	}

	moment, err := parseSessionMoment(sessionDate, sessionTime, location)
	if err != nil {
		d.logger.WarnContext(ctx, "unparseable session moment, guard disabled",
			"session_date", sessionDate, "session_time", sessionTime)

		return false, nil
	}

	return moment.Before(time.Now()), nil
}

func embeddedSessionMoment(triggerData map[string]any) (date, clock string) {
	sessionData, ok := mapField(triggerData, "session_data")
	if !ok {
		return "", ""
	}

	return stringField(sessionData, "session_date"), stringField(sessionData, "session_time")
}

func parseSessionMoment(date, clock string, location *time.Location) (time.Time, error) {
	if clock == "" {
		return time.ParseInLocation("2006-01-02", date, location)
	}

	moment, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, location)
	if err != nil {
		moment, err = time.ParseInLocation("2006-01-02 15:04", date+" "+clock, location)
	}

	return moment, err
}

// scheduleReminders invokes the reminder-scheduling procedure unless the
// payload opts out. Failures never abort the dispatch.
func (d *Dispatcher) scheduleReminders(ctx context.Context, req TriggerRequest, logger *slog.Logger) {
	if skip, ok := req.TriggerData["skip_reminders"].(bool); ok && skip {
		return
	}

	if notifications, ok := mapField(req.TriggerData, "notifications"); ok {
		if send, ok := notifications["sendReminder"].(bool); ok && !send {
			return
		}
	}

	err := d.persistence.ScheduleSessionReminders(ctx, req.EntityID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to schedule session reminders", "error", err)
	}
}

func (d *Dispatcher) hasRecentDuplicate(ctx context.Context, workflowID string, req TriggerRequest) (bool, error) {
	since := time.Now().Add(-duplicateWindow)

	recent, err := d.persistence.RecentExecutions(ctx, workflowID, req.EntityType, req.EntityID, since)
	if err != nil {
		return false, fmt.Errorf("failed to query recent executions: %w", err)
	}

	for _, execution := range recent {
		switch execution.Status {
		case models.ExecutionPending, models.ExecutionRunning, models.ExecutionCompleted:
		default:
			continue
		}

		if triggerDataMatches(execution.TriggerData(), req.TriggerData) {
			return true, nil
		}
	}

	return false, nil
}

func (d *Dispatcher) createExecution(ctx context.Context, workflow *models.Workflow, req TriggerRequest, fingerprint string) (*models.WorkflowExecution, error) {
	execution := &models.WorkflowExecution{
		WorkflowID:        workflow.ID,
		TriggerEntityType: req.EntityType,
		TriggerEntityID:   req.EntityID,
		Status:            models.ExecutionPending,
		ExecutionLog: []models.ExecutionLogEntry{{
			Timestamp:   time.Now().UTC(),
			Action:      models.LogTriggered,
			TriggerData: req.TriggerData,
			Fingerprint: fingerprint,
		}},
	}

	err := d.persistence.CreateExecution(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	return execution, nil
}

// scheduleExecution publishes the execution to the worker. A publish failure
// leaves the pending execution row behind for later recovery and is logged,
// not escalated.
func (d *Dispatcher) scheduleExecution(ctx context.Context, workflow *models.Workflow, req TriggerRequest, execution *models.WorkflowExecution, logger *slog.Logger) {
	event := events.ExecutionScheduled{
		BaseEvent:   events.NewBaseEvent(events.ExecutionScheduledEvent, workflow.ID),
		ExecutionID: execution.ID,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		TriggerData: req.TriggerData,
	}
	event.OrganizationID = req.OrganizationID

	err := d.publisher.Publish(ctx, execution.ID, event)
	if err != nil {
		logger.ErrorContext(ctx, "failed to publish execution", "execution_id", execution.ID, "error", err)
	}
}
