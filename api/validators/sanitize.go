package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims surrounding whitespace, strips control characters,
// and caps the result at maxLen bytes. Display names and category labels
// pass through here before they reach the services.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, input)
	cleaned = strings.TrimSpace(cleaned)
	if maxLen > 0 && len(cleaned) > maxLen {
		cleaned = strings.TrimSpace(cleaned[:maxLen])
	}
	return cleaned
}
