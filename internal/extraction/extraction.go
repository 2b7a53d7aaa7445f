// Package extraction turns unstructured receipt, expense and shopping-list text
// into structured transaction data.
//
// Every exported entry point is a total function: unparseable input produces a
// result with absent fields, never an error.
package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Member is a known household member that participant matching runs against.
type Member struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SplitMethod is how an expense total is divided among participants.
type SplitMethod string

const (
	SplitEven       SplitMethod = "even"
	SplitPercentage SplitMethod = "percentage"
	SplitManual     SplitMethod = "manual"
)

// ReceiptData is the structured form of OCR'd receipt text.
type ReceiptData struct {
	Description string           `json:"description"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	Date        time.Time        `json:"date"`

	// DateDefaulted is true when no date was found and Date holds today.
	DateDefaulted bool     `json:"date_defaulted"`
	Merchant      *string  `json:"merchant"`
	Items         []string `json:"items"`
}

// ParsedExpense is the structured form of a typed or spoken expense sentence.
type ParsedExpense struct {
	Description  string                     `json:"description"`
	Amount       *decimal.Decimal           `json:"amount"`
	Participants []string                   `json:"participants"`
	SplitMethod  SplitMethod                `json:"split_method"`
	Percentage   *int                       `json:"percentage,omitempty"`
	ManualShares map[string]decimal.Decimal `json:"manual_shares,omitempty"`
	Date         *time.Time                 `json:"date,omitempty"`
}

// ParsedListItem is one entry of a shopping list.
type ParsedListItem struct {
	Name       string           `json:"name"`
	Quantity   *int             `json:"quantity,omitempty"`
	Weight     *decimal.Decimal `json:"weight,omitempty"`
	WeightUnit Unit             `json:"weight_unit,omitempty"`
}

// Candidate is one unvalidated guess for a field, with the byte span of text it
// came from and the rule that produced it.
type Candidate[T any] struct {
	Value T
	Start int
	End   int
	Rule  string
}

// Rule is a named pure function from text to candidates.
type Rule[T any] struct {
	Name string
	Find func(text string) []Candidate[T]
}

// firstNonEmpty runs rules in priority order and returns the candidates of the
// first rule that produced any.
func firstNonEmpty[T any](text string, rules []Rule[T]) []Candidate[T] {
	for _, r := range rules {
		if found := tagged(r, text); len(found) > 0 {
			return found
		}
	}
	return nil
}

// pool runs every rule and concatenates their candidates.
func pool[T any](text string, rules []Rule[T]) []Candidate[T] {
	var all []Candidate[T]
	for _, r := range rules {
		all = append(all, tagged(r, text)...)
	}
	return all
}

func tagged[T any](r Rule[T], text string) []Candidate[T] {
	found := r.Find(text)
	for i := range found {
		found[i].Rule = r.Name
	}
	return found
}

type span struct{ start, end int }

// cutSpans removes the given byte ranges from text. Overlapping ranges are fine.
func cutSpans(text string, spans []span) string {
	if len(spans) == 0 {
		return text
	}
	drop := make([]bool, len(text))
	for _, s := range spans {
		if s.start < 0 || s.end > len(text) || s.start >= s.end {
			continue
		}
		for i := s.start; i < s.end; i++ {
			drop[i] = true
		}
	}
	out := make([]byte, 0, len(text))
	for i := 0; i < len(text); i++ {
		if drop[i] {
			// keep words on either side of a cut apart
			if len(out) > 0 && out[len(out)-1] != ' ' {
				out = append(out, ' ')
			}
			continue
		}
		out = append(out, text[i])
	}
	return string(out)
}
