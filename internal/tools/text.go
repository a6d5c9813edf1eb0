package tools

import "unicode/utf8"

// Clip returns the longest prefix of s that fits in max bytes without
// splitting a UTF-8 sequence.
func Clip(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	i := max
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return s[:i]
}
