package research

import (
	"strings"
	"unicode/utf8"
)

func trimToRunes(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(raw) <= limit {
		return raw
	}
	return string([]rune(raw)[:limit])
}

func countSources(findings []Finding) int {
	total := 0
	for _, finding := range findings {
		total += len(finding.Sources)
	}
	return total
}

// headingFromFindings derives a section heading from the first sentence
// of a finding, capped at 60 runes; without a sentence boundary the
// first 60 runes are used.
func headingFromFindings(content string) string {
	heading := content
	if dot := strings.Index(content, "."); dot != -1 {
		heading = content[:dot]
	}
	return trimToRunes(heading, 60)
}
