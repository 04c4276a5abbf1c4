package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxLogStringLength defines the maximum length for user-provided strings in logs
const MaxLogStringLength = 200

var unprintable = regexp.MustCompile(`[^\p{L}\p{N}\p{P}\p{S}\p{Z}]`)

// SanitizeLogString sanitizes a user-controlled string (room names, user
// identities, document names) for safe logging. It replaces control
// characters, limits string length and strips unprintable runes.
func SanitizeLogString(input string) string {
	if input == "" {
		return ""
	}

	// Truncate long strings on a rune boundary
	if runes := []rune(input); len(runes) > MaxLogStringLength {
		input = string(runes[:MaxLogStringLength]) + "... (truncated)"
	}

	// Pre-process CRLF to avoid double spaces
	input = strings.ReplaceAll(input, "\r\n", "\n")

	sanitized := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, input)

	return unprintable.ReplaceAllString(sanitized, "")
}
