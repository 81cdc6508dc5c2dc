package settings

import (
	"time"

	"github.com/togay-aytemiz/lumiso-sub000/pkg/models"
)

// FormatDate renders a YYYY-MM-DD date string in the organization's display
// format. Unparseable input is returned as-is.
func FormatDate(date string, format string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}

	switch format {
	case models.DateFormatDMYSlash:
		return parsed.Format("02/01/2006")
	case models.DateFormatYMDDash:
		return parsed.Format("2006-01-02")
	case models.DateFormatDMYDash:
		return parsed.Format("02-01-2006")
	case models.DateFormatMDYDash:
		return parsed.Format("01-02-2006")
	default:
		return parsed.Format("01/02/2006")
	}
}

// FormatTime renders an HH:MM or HH:MM:SS time string as 12h or 24h clock.
// Unparseable input is returned as-is.
func FormatTime(value string, format string) string {
	parsed, err := time.Parse("15:04:05", value)
	if err != nil {
		parsed, err = time.Parse("15:04", value)
		if err != nil {
			return value
		}
	}

	if format == models.TimeFormat24h {
		return parsed.Format("15:04")
	}

	return parsed.Format("3:04 PM")
}
