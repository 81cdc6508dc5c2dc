package workflow

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

// Fingerprint derives the dedup key of one logical trigger event. Two
// dispatches collide when they target the same workflow and entity with the
// same status_change, date_change and reminder_type payload fields.
func Fingerprint(workflowID string, entityType models.EntityType, entityID string, triggerData map[string]any) string {
	parts := []string{
		workflowID,
		string(entityType),
		entityID,
		stringField(triggerData, "status_change"),
		stringField(triggerData, "date_change"),
		stringField(triggerData, "reminder_type"),
	}

	return strings.Join(parts, "-")
}

// triggerDataMatches compares the dedup-relevant fields of two trigger
// payloads. Used against the first log entry of recent executions.
func triggerDataMatches(a, b map[string]any) bool {
	for _, key := range []string{"status_change", "date_change", "reminder_type"} {
		if stringField(a, key) != stringField(b, key) {
			return false
		}
	}

	return true
}

func stringField(data map[string]any, key string) string {
	if data == nil {
		return ""
	}

	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}

	return stringValue(value)
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func floatValue(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(typed, 64)

		return parsed, err == nil
	default:
		return 0, false
	}
}
