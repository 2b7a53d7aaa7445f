package extraction

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const segmentSeparator = "|"

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(`[ \f\v]{2,}`)
	reWhitespace = regexp.MustCompile(`\s+`)

	// "." between two digits is a decimal point and survives splitting.
	reDecimalPoint = regexp.MustCompile(`(\d)\.(\d)`)
	reSeparators   = regexp.MustCompile(`[,;.\n]|\band\b|\|`)
)

const decimalPlaceholder = "\x00"

// toLower builds a fresh Caser per call; a Caser must not be shared between
// goroutines.
func toLower(s string) string {
	return cases.Lower(language.English).String(s)
}

// NormalizeText lowercases s and collapses every run of whitespace to a single
// space.
func NormalizeText(s string) string {
	s = toLower(s)
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}

// SplitSegments normalizes list-style input and splits it into item segments.
// Commas, semicolons, periods, line breaks and the word "and" all separate
// items. Empty segments are dropped; input without separators is one segment.
func SplitSegments(s string) []string {
	s = toLower(reCRLF.ReplaceAllString(s, "\n"))
	s = reDecimalPoint.ReplaceAllString(s, "$1"+decimalPlaceholder+"$2")
	s = reSeparators.ReplaceAllString(s, segmentSeparator)

	var segments []string
	for _, part := range strings.Split(s, segmentSeparator) {
		part = strings.ReplaceAll(part, decimalPlaceholder, ".")
		part = strings.TrimSpace(reWhitespace.ReplaceAllString(part, " "))
		if part != "" {
			segments = append(segments, part)
		}
	}
	return segments
}

// cleanLines prepares receipt text: it normalizes line endings and horizontal
// whitespace, trims every line and drops blank ones. Case is preserved.
func cleanLines(s string) []string {
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// foldName lowercases s and strips diacritics so "José" and "jose" compare equal.
func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return toLower(strings.TrimSpace(folded))
}
