package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_ReplacesKnownPlaceholders(t *testing.T) {
	data := map[string]string{
		"client_name":  "Ayse",
		"session_date": "2026-10-01",
	}

	result := Render("Hi {{client_name}}, see you on {{ session_date }}!", data)

	assert.Equal(t, "Hi Ayse, see you on 2026-10-01!", result)
}

func TestRender_LeavesUnknownPlaceholdersIntact(t *testing.T) {
	result := Render("Hi {{client_name}}", map[string]string{"other": "x"})

	assert.Equal(t, "Hi {{client_name}}", result)
}

func TestRender_NoPlaceholders(t *testing.T) {
	assert.Equal(t, "plain text", Render("plain text", nil))
}

func TestPlaceholders_ReturnsDistinctKeys(t *testing.T) {
	keys := Placeholders("{{a}} {{ b }} {{a}}")

	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}
