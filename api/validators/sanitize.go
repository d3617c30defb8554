package validators

import "strings"

// SanitizeOptional trims input and caps it at maxLen runes. Blank input yields nil.
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*input)
	if trimmed == "" {
		return nil
	}
	if runes := []rune(trimmed); maxLen > 0 && len(runes) > maxLen {
		trimmed = string(runes[:maxLen])
	}
	return &trimmed
}
