package llm

import (
	"regexp"
	"strings"
)

var (
	inlineNoteRe    = regexp.MustCompile(`(?i)\((note|nota|disclaimer)\b[^)]*\)`)
	bracketedNoteRe = regexp.MustCompile(`(?i)\[(note|nota|disclaimer)\b[^\]]*\]`)
	noteLineRe      = regexp.MustCompile(`(?i)^(note|nota|disclaimer)\s*:`)
)

// Sanitize strips model boilerplate from completion text: inline or bracketed
// "(Note: ...)" disclaimers and whole lines that are nothing but a disclaimer.
// The actual answer is preserved as-is.
func Sanitize(text string) string {
	text = inlineNoteRe.ReplaceAllString(text, "")
	text = bracketedNoteRe.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if noteLineRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		kept = append(kept, line)
	}

	out := strings.Join(kept, "\n")
	// Collapse the double spaces left behind by inline removals.
	out = strings.ReplaceAll(out, "  ", " ")
	return strings.TrimSpace(out)
}
