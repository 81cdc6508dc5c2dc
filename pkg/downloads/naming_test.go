package downloads

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

func TestSanitizeArchiveName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain name gets zip suffix", "Wedding Photos", "Wedding_Photos.zip"},
		{"existing zip suffix not doubled", "Wedding Photos.zip", "Wedding_Photos.zip"},
		{"unsafe characters collapse to underscore", `photos<>:"/\|?*2026`, "photos_2026.zip"},
		{"whitespace runs collapse to underscore", "Kaya  Family\tWedding", "Kaya_Family_Wedding.zip"},
		{"control characters stripped", "pho\x00tos\x1f", "photos.zip"},
		{"empty input falls back", "", "download.zip"},
		{"whitespace only falls back", "   ", "download.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeArchiveName(tt.input))
		})
	}
}

func TestSanitizeArchiveName_CapsLength(t *testing.T) {
	long := strings.Repeat("a", 400)

	result := SanitizeArchiveName(long)

	assert.LessOrEqual(t, len(result), 200)
	assert.True(t, strings.HasSuffix(result, ".zip"))
}

func TestSanitizeArchiveName_CapDoesNotSplitRunes(t *testing.T) {
	long := strings.Repeat("Seçim Fotoğrafları ", 30)

	result := SanitizeArchiveName(long)

	assert.True(t, utf8.ValidString(result))
	assert.Equal(t, 200, utf8.RuneCountInString(result))
	assert.True(t, strings.HasSuffix(result, ".zip"))
}

func TestDefaultArchiveName(t *testing.T) {
	final := &models.Gallery{Title: "Smith Wedding", Type: "final"}
	proof := &models.Gallery{Title: "Smith Wedding", Type: "proof"}

	assert.Equal(t, "Final_Smith_Wedding.zip", DefaultArchiveName(final))
	assert.Equal(t, "Secim_Smith_Wedding.zip", DefaultArchiveName(proof))
}
