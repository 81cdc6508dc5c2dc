package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

func TestFingerprint(t *testing.T) {
	data := map[string]any{
		"status_change": "new->booked",
		"date_change":   "2026-09-01",
		"reminder_type": "day_before",
		"irrelevant":    "ignored",
	}

	fingerprint := Fingerprint("wf-1", models.EntityLead, "lead-9", data)

	assert.Equal(t, "wf-1-lead-lead-9-new->booked-2026-09-01-day_before", fingerprint)
}

func TestFingerprint_MissingFieldsAreEmpty(t *testing.T) {
	fingerprint := Fingerprint("wf-1", models.EntitySession, "s-1", nil)

	assert.Equal(t, "wf-1-session-s-1---", fingerprint)
}

func TestFingerprint_NumericFieldCoercion(t *testing.T) {
	a := Fingerprint("wf", models.EntityLead, "l", map[string]any{"status_change": float64(5)})
	b := Fingerprint("wf", models.EntityLead, "l", map[string]any{"status_change": 5})

	assert.Equal(t, a, b)
}

func TestTriggerDataMatches(t *testing.T) {
	base := map[string]any{"status_change": "a", "reminder_type": "day_before"}

	assert.True(t, triggerDataMatches(base, map[string]any{"status_change": "a", "reminder_type": "day_before", "extra": 1}))
	assert.False(t, triggerDataMatches(base, map[string]any{"status_change": "b", "reminder_type": "day_before"}))
	assert.False(t, triggerDataMatches(base, nil))
	assert.True(t, triggerDataMatches(nil, nil))
}
