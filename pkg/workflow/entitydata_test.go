package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
	"github.com/togay-aytemiz/lumiso-sub000/pkg/persistence/memory"
)

func TestResolve_EmbeddedSnapshotsWinOverStore(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedSession(&models.Session{ID: "s-1", Name: "Stale name", SessionDate: "2020-01-01"})

	resolver := NewEntityResolver(store, testLogger())

	data, err := resolver.Resolve(context.Background(), models.EntitySession, "s-1", map[string]any{
		"session_data": map[string]any{
			"name":         "Garden shoot",
			"session_date": "2026-10-01",
			"session_time": "14:00",
			"location":     "Moda sahil",
		},
		"lead_data": map[string]any{
			"name":  "Ayse Yilmaz",
			"email": "ayse@example.com",
			"phone": "+90 555 000 0000",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Garden shoot", data["session_name"])
	assert.Equal(t, "2026-10-01", data["session_date"])
	assert.Equal(t, "Ayse Yilmaz", data["client_name"])
	assert.Equal(t, "ayse@example.com", data["client_email"])
}

func TestResolve_ExpectedSessionMismatchIsHardError(t *testing.T) {
	resolver := NewEntityResolver(memory.NewPersistence(), testLogger())

	_, err := resolver.Resolve(context.Background(), models.EntitySession, "s-2", map[string]any{
		"session_data": map[string]any{"session_date": "2026-10-01"},
		"lead_data":    map[string]any{"name": "Ayse"},
		"debug_session_validation": map[string]any{
			"expected_session_id": "s-1",
		},
	})

	require.ErrorIs(t, err, ErrEmbeddedSessionMismatch)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestResolve_SessionFromStoreJoinsLeadAndProject(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedSession(&models.Session{
		ID:          "s-1",
		LeadID:      "lead-1",
		ProjectID:   "project-1",
		Name:        "Newborn shoot",
		SessionDate: "2026-11-20",
		SessionTime: "10:30",
		Location:    "Studio A",
	})
	store.SeedLead(&models.Lead{ID: "lead-1", Name: "Mehmet", Email: "mehmet@example.com"})
	store.SeedProject(&models.Project{ID: "project-1", Name: "Kaya family"})

	resolver := NewEntityResolver(store, testLogger())

	data, err := resolver.Resolve(context.Background(), models.EntitySession, "s-1", nil)

	require.NoError(t, err)
	assert.Equal(t, "Newborn shoot", data["session_name"])
	assert.Equal(t, "Mehmet", data["client_name"])
	assert.Equal(t, "Kaya family", data["project_name"])
}

func TestResolve_LeadCustomFieldsArePrefixed(t *testing.T) {
	store := memory.NewPersistence()
	store.SeedLead(&models.Lead{ID: "lead-1", Name: "Zeynep"})
	store.SeedLeadFields("lead-1", map[string]string{"wedding_venue": "Kizkulesi"})

	resolver := NewEntityResolver(store, testLogger())

	data, err := resolver.Resolve(context.Background(), models.EntityLead, "lead-1", nil)

	require.NoError(t, err)
	assert.Equal(t, "Kizkulesi", data["lead_wedding_venue"])
}

func TestResolve_UnknownEntityType(t *testing.T) {
	resolver := NewEntityResolver(memory.NewPersistence(), testLogger())

	_, err := resolver.Resolve(context.Background(), "invoice", "x", nil)

	require.Error(t, err)
}

func TestClientEmail_FallbackKeys(t *testing.T) {
	assert.Equal(t, "a@example.com", ClientEmail(map[string]string{"client_email": "a@example.com"}))
	assert.Equal(t, "b@example.com", ClientEmail(map[string]string{"email": "b@example.com"}))
	assert.Equal(t, "c@example.com", ClientEmail(map[string]string{"lead_email": "c@example.com"}))
	assert.Empty(t, ClientEmail(map[string]string{}))
}
