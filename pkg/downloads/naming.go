// Package downloads implements the gallery bulk-download pipeline: request
// dedup, background archive building and expiry cleanup.
package downloads

import (
	"regexp"
	"strings"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

const maxArchiveNameLength = 200

var (
	unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*]+`)
	whitespaceRuns  = regexp.MustCompile(`\s+`)
)

// SanitizeArchiveName makes a client-supplied download filename safe for a
// Content-Disposition header and common filesystems: control characters are
// stripped, unsafe characters and whitespace runs collapse to underscores,
// length is capped and a .zip suffix is forced.
func SanitizeArchiveName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}

		return r
	}, name)

	cleaned = unsafeNameChars.ReplaceAllString(cleaned, "_")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = whitespaceRuns.ReplaceAllString(cleaned, "_")
	cleaned = strings.TrimSuffix(cleaned, ".zip")

	// Cap on runes, not bytes, so multi-byte titles keep valid UTF-8.
	if runes := []rune(cleaned); len(runes) > maxArchiveNameLength-4 {
		cleaned = string(runes[:maxArchiveNameLength-4])
	}

	if cleaned == "" {
		return "download.zip"
	}

	return cleaned + ".zip"
}

// ResolveAssetVariant picks which asset rendition a gallery serves: final
// galleries deliver originals, selection galleries the web rendition. The
// variant is never taken from the client.
func ResolveAssetVariant(galleryType string) string {
	if galleryType == "final" {
		return models.AssetVariantOriginal
	}

	return models.AssetVariantWeb
}

// DefaultArchiveName derives the download filename from the gallery when the
// client supplied none.
func DefaultArchiveName(gallery *models.Gallery) string {
	prefix := "Secim"
	if gallery.Type == "final" {
		prefix = "Final"
	}

	return SanitizeArchiveName(prefix + "_" + gallery.Title)
}
