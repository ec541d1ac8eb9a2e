package util

import (
	"strings"
	"unicode"
)

// ExtractHashtags returns the unique #tags in content, without the '#', in
// order of first appearance. Tags compare case-insensitively; the first
// spelling wins.
func ExtractHashtags(content string) []string {
	var tags []string
	seen := make(map[string]bool)

	for _, word := range strings.Fields(content) {
		if !strings.HasPrefix(word, "#") {
			continue
		}
		tag := strings.TrimFunc(strings.TrimPrefix(word, "#"), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		key := strings.ToLower(tag)
		if len(tag) == 0 || len(tag) > 50 || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	return tags
}

// IsBlank reports whether s is nil or only whitespace
func IsBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}
