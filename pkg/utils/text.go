package utils

import "unicode/utf8"

// Truncate cuts s to at most limit bytes without splitting a UTF-8
// sequence. The cut point backs up to the nearest rune boundary.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
