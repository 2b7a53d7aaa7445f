package extraction

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	merchantScanLines = 3
	merchantMinLen    = 3
	merchantMaxLen    = 49

	itemMinLen      = 3
	itemMaxLen      = 100
	itemBareMinLen  = 6
	maxReceiptItems = 10
)

var (
	rePhoneShape = regexp.MustCompile(`\(?\b\d{3}\)?[\s.-]?\d{3}[\s.-]\d{4}\b`)

	reNonItem = regexp.MustCompile(`(?i)^(total|subtotal|tax|tip|amount|due|change|cash|card|receipt|thank|merchant)`)

	// a price needs a dollar sign or cents to be told apart from a quantity
	reTrailingPrice = regexp.MustCompile(`\s+(?:\$(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{2})?|(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})\s*$`)
)

// ExtractMerchant returns the first of the leading lines that looks like a
// business name, or nil. Lines that are phone numbers, dates, start with a
// digit or are too short or long are skipped.
func ExtractMerchant(lines []string) *string {
	i := merchantLine(lines)
	if i < 0 {
		return nil
	}
	merchant := strings.TrimSpace(lines[i])
	return &merchant
}

// merchantLine returns the index of the merchant line, or -1.
func merchantLine(lines []string) int {
	seen := 0
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if seen++; seen > merchantScanLines {
			break
		}
		if rePhoneShape.MatchString(line) || reDateShape.MatchString(line) {
			continue
		}
		if r, _ := utf8.DecodeRuneInString(line); unicode.IsDigit(r) {
			continue
		}
		if n := utf8.RuneCountInString(line); n < merchantMinLen || n > merchantMaxLen {
			continue
		}
		return i
	}
	return -1
}

// ExtractLineItems returns up to ten lines that look like purchased items, in
// document order. A trailing price is stripped from the item text.
func ExtractLineItems(lines []string) []string {
	items := make([]string, 0)
	for _, line := range lines {
		if len(items) == maxReceiptItems {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if reNonItem.MatchString(line) || rePhoneShape.MatchString(line) || reDateShape.MatchString(line) {
			continue
		}
		if n := utf8.RuneCountInString(line); n < itemMinLen || n > itemMaxLen {
			continue
		}
		if loc := reTrailingPrice.FindStringIndex(line); loc != nil {
			if name := strings.TrimSpace(line[:loc[0]]); name != "" {
				items = append(items, name)
			}
			continue
		}
		if utf8.RuneCountInString(line) >= itemBareMinLen {
			items = append(items, line)
		}
	}
	return items
}
