package ocr

import (
	"regexp"
	"strings"
)

var (
	reMarkup     = regexp.MustCompile(`<[^>]+>`)
	reHSpace     = regexp.MustCompile(`[ \t]+`)
	reBlankLines = regexp.MustCompile(`\n\s*\n`)
)

// CleanText strips markup tags left by the model, collapses horizontal
// whitespace and squeezes blank-line runs into a single blank line.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	s = reMarkup.ReplaceAllString(s, " ")
	s = reHSpace.ReplaceAllString(s, " ")
	s = reBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
