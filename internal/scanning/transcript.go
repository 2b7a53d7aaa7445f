package scanning

import (
	"regexp"
	"strings"
)

var (
	reFenceOpen  = regexp.MustCompile("^```[a-zA-Z]*\\s*\n?")
	reFenceClose = regexp.MustCompile("\n?```\\s*$")
	rePreamble   = regexp.MustCompile(`(?i)^(?:here(?:'s| is) the (?:transcribed |extracted )?text(?: of the receipt)?|transcription)\s*:\s*\n`)
)

// cleanTranscript strips the wrapping that vision models tend to add around a
// transcription even when told not to. Line structure is kept.
func cleanTranscript(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))
	text = rePreamble.ReplaceAllString(text, "")
	text = reFenceOpen.ReplaceAllString(text, "")
	text = reFenceClose.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
