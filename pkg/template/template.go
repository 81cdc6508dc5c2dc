// Package template renders {{placeholder}} message templates against the
// resolved entity data of an execution.
package template

import "regexp"

var placeholderPattern = regexp.MustCompile(`\{\{\s*(\w+)\s*\}\}`)

// Render substitutes {{key}} placeholders with values from data. Unknown
// placeholders are left intact so misconfigured templates stay visible in
// the delivered message instead of silently losing content.
func Render(input string, data map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(input, func(match string) string {
		key := placeholderPattern.FindStringSubmatch(match)[1]

		value, ok := data[key]
		if !ok {
			return match
		}

		return value
	})
}

// Placeholders returns the distinct placeholder keys referenced by a template.
func Placeholders(input string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(input, -1)
	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))

	for _, match := range matches {
		if _, ok := seen[match[1]]; ok {
			continue
		}

		seen[match[1]] = struct{}{}
		keys = append(keys, match[1])
	}

	return keys
}
