package utils

import (
	"regexp"
	"strings"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	scriptTagPattern   = regexp.MustCompile(`(?i)</?script\b[^>]*>?`)
)

// SanitizeInput removes <script> blocks, then any unmatched opening or closing script
// tags, and trims surrounding whitespace. Stripping repeats until nothing changes so
// fragments like "<scr<script>ipt>" cannot reassemble a tag. Everything else is left untouched.
func SanitizeInput(text string) string {
	for {
		stripped := scriptBlockPattern.ReplaceAllString(text, "")
		stripped = scriptTagPattern.ReplaceAllString(stripped, "")
		if stripped == text {
			break
		}
		text = stripped
	}
	return strings.TrimSpace(text)
}
