package common

import (
	"strings"
	"unicode"
)

// StripControl removes control characters and surrounding whitespace.
func StripControl(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// LastNonBlankLine returns the last line of s with non-whitespace content,
// or an empty string.
func LastNonBlankLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
