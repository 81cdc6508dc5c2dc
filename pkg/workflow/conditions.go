// Package workflow implements the trigger dispatcher, the step executor and
// their supporting pieces: condition evaluation, duplicate fingerprinting
// and entity data resolution.
package workflow

import "github.com/togay-aytemiz/lumiso-sub000/pkg/models"

// EvaluateTriggerConditions decides whether a workflow's trigger conditions
// match the incoming payload. Absence of conditions means true. Predicate
// keys are checked in priority order and the first present key decides.
func EvaluateTriggerConditions(conditions, payload map[string]any) bool {
	if len(conditions) == 0 {
		return true
	}

	if want, ok := conditions["status_changed_to"]; ok {
		return looseEqual(want, payload["new_status"])
	}

	if want, ok := conditions["status_changed_from"]; ok {
		return looseEqual(want, payload["old_status"])
	}

	if want, ok := conditions["reminder_type"]; ok {
		return looseEqual(want, payload["reminder_type"])
	}

	if want, ok := conditions["reminder_days"]; ok {
		return numericEqual(want, payload["reminder_days"])
	}

	if want, ok := conditions["reminder_hours"]; ok {
		return numericEqual(want, payload["reminder_hours"])
	}

	return true
}

// EvaluateStepConditions is a placeholder: step-level conditions are stored
// but not yet interpreted, so every step passes. Interpreting them here is
// an extension point waiting on product semantics.
func EvaluateStepConditions(_ map[string]any, _ *models.WorkflowExecution) bool {
	return true
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}

	return stringValue(a) == stringValue(b)
}

func numericEqual(a, b any) bool {
	aVal, aOK := floatValue(a)
	bVal, bOK := floatValue(b)

	return aOK && bOK && aVal == bVal
}
