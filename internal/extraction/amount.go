package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const numberPattern = `(\d{1,3}(?:,\d{3})+|\d+)(\.\d{1,2})?`

var (
	reCurrency     = regexp.MustCompile(`\$?` + numberPattern)
	reLabeledTotal = regexp.MustCompile(`(?i)\btotal\s*:?\s*\$?` + numberPattern)
	reLabeledAmt   = regexp.MustCompile(`(?i)\bamount\s*:?\s*\$?` + numberPattern)
	reLabeledDue   = regexp.MustCompile(`(?i)\bdue\s*:?\s*\$?` + numberPattern)
)

// amountRules lists the amount rules. Their candidates are pooled.
var amountRules = []Rule[decimal.Decimal]{
	{Name: "currency", Find: matchAmounts(reCurrency)},
	{Name: "total", Find: matchAmounts(reLabeledTotal)},
	{Name: "amount", Find: matchAmounts(reLabeledAmt)},
	{Name: "due", Find: matchAmounts(reLabeledDue)},
}

// matchAmounts builds a rule body from a pattern whose last two groups are the
// integer part and optional cents. The candidate span covers the number and
// its dollar sign but not the label.
func matchAmounts(re *regexp.Regexp) func(string) []Candidate[decimal.Decimal] {
	return func(text string) []Candidate[decimal.Decimal] {
		var found []Candidate[decimal.Decimal]
		n := re.NumSubexp()
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			intStart, intEnd := m[2*(n-1)], m[2*(n-1)+1]
			end := intEnd
			if m[2*n] >= 0 {
				end = m[2*n+1]
			}
			start := intStart
			if start > 0 && text[start-1] == '$' {
				start--
			}
			if partOfLargerToken(text, intStart, end) {
				continue
			}
			raw := strings.ReplaceAll(text[intStart:end], ",", "")
			value, err := decimal.NewFromString(raw)
			if err != nil || !value.IsPositive() {
				continue
			}
			found = append(found, Candidate[decimal.Decimal]{Value: value, Start: start, End: end})
		}
		return found
	}
}

// partOfLargerToken reports whether the number at text[start:end] is really a
// fragment of a date, time, phone number, percentage or longer decimal.
func partOfLargerToken(text string, start, end int) bool {
	if start > 0 {
		switch c := text[start-1]; {
		case c >= '0' && c <= '9', c == '/', c == '-', c == ':', c == '.', c == '(':
			return true
		}
	}
	if end < len(text) {
		switch c := text[end]; {
		case c >= '0' && c <= '9', c == '/', c == '-', c == ':', c == '%', c == ')':
			return true
		case c == '.' && end+1 < len(text) && text[end+1] >= '0' && text[end+1] <= '9':
			return true
		}
	}
	return false
}

// amountCandidates returns every amount candidate in text, each tagged with
// the rule that produced it.
func amountCandidates(text string) []Candidate[decimal.Decimal] {
	return pool(text, amountRules)
}

// ExtractMaxAmount returns the largest valid amount anywhere in text: on a
// receipt the grand total is the largest currency-shaped number. It returns
// nil when nothing qualifies.
func ExtractMaxAmount(text string) *decimal.Decimal {
	var best *Candidate[decimal.Decimal]
	candidates := amountCandidates(text)
	for i := range candidates {
		if best == nil || candidates[i].Value.GreaterThan(best.Value) {
			best = &candidates[i]
		}
	}
	if best == nil {
		return nil
	}
	v := best.Value
	return &v
}

// firstAmount returns the earliest amount candidate in document order.
func firstAmount(text string) (Candidate[decimal.Decimal], bool) {
	candidates := amountCandidates(text)
	if len(candidates) == 0 {
		return Candidate[decimal.Decimal]{}, false
	}
	first := candidates[0]
	for _, c := range candidates[1:] {
		if c.Start < first.Start {
			first = c
		}
	}
	return first, true
}

// ExtractFirstAmount returns the first amount in document order, or nil.
func ExtractFirstAmount(text string) *decimal.Decimal {
	c, ok := firstAmount(text)
	if !ok {
		return nil
	}
	return &c.Value
}
