package search

import (
	"strings"
	"unicode/utf8"
)

// Snippet returns at most maxLen runes of content, centered on the first case-insensitive
// occurrence of query when there is one. Cut ends are marked with "...".
func Snippet(content, query string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if maxLen <= 0 || len(runes) <= maxLen {
		return content
	}

	start := 0
	if q := strings.TrimSpace(query); q != "" {
		if byteIdx := strings.Index(strings.ToLower(content), strings.ToLower(q)); byteIdx >= 0 {
			hit := utf8.RuneCountInString(strings.ToLower(content)[:byteIdx])
			start = hit - maxLen/4
		}
	}
	if start < 0 {
		start = 0
	}
	if start > len(runes)-maxLen {
		start = len(runes) - maxLen
	}
	end := start + maxLen

	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}
