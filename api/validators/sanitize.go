package validators

import "strings"

// SanitizeString trims input, collapses inner whitespace and truncates to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.Join(strings.Fields(input), " ")
	if maxLen > 0 {
		if runes := []rune(trimmed); len(runes) > maxLen {
			return strings.TrimSpace(string(runes[:maxLen]))
		}
	}
	return trimmed
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SanitizeSearch prepares catalog search text for a LIKE pattern.
func SanitizeSearch(input string, maxLen int) string {
	return likeEscaper.Replace(SanitizeString(input, maxLen))
}
