package auth

import (
	"strings"
	"unicode"
)

// SanitizeName cleans a display name for storage: trims whitespace and strips
// control characters. Names are stored as typed; escaping belongs to whatever
// renders them.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	return removeControlChars(name)
}

// removeControlChars removes control characters except newline and tab.
func removeControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
