package extraction

import (
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules"
	"github.com/olebedev/when/rules/en"
)

const (
	maxDescriptionLen   = 100
	receiptSummaryItems = 3
	defaultReceiptLabel = "Receipt"
	defaultExpenseLabel = "Expense"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Pipeline runs the extractors for each of the three input modes and
// assembles their results. It holds no per-call state and is safe for
// concurrent use.
type Pipeline struct {
	timeSource TimeSource
	dates      *when.Parser
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline that reads the wall clock and logs to the
// default logger.
func NewPipeline() *Pipeline {
	return NewPipelineWithDeps(&defaultTimeSource{}, slog.Default())
}

// NewPipelineWithDeps creates a Pipeline with a custom time source and logger.
// Nil arguments fall back to the wall clock and the default logger.
func NewPipelineWithDeps(timeSource TimeSource, logger *slog.Logger) *Pipeline {
	if timeSource == nil {
		timeSource = &defaultTimeSource{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	dates := when.New(nil)
	dates.Add(
		en.CasualDate(rules.Override),
		en.Weekday(rules.Override),
		en.PastTime(rules.Override),
		en.ExactMonthDate(rules.Override),
	)
	return &Pipeline{
		timeSource: timeSource,
		dates:      dates,
		logger:     logger,
	}
}

// ExtractReceipt turns OCR'd receipt text into ReceiptData. The total is the
// largest amount on the receipt; the date falls back to today.
func (p *Pipeline) ExtractReceipt(text string) ReceiptData {
	lines := cleanLines(text)
	joined := strings.Join(lines, "\n")

	date, defaulted := ExtractDate(joined, p.timeSource.Now())
	data := ReceiptData{
		TotalAmount:   ExtractMaxAmount(joined),
		Date:          date,
		DateDefaulted: defaulted,
	}

	if i := merchantLine(lines); i >= 0 {
		merchant := lines[i]
		data.Merchant = &merchant
	}
	data.Items = ExtractLineItems(lines)
	data.Description = receiptDescription(data.Merchant, data.Items)

	p.logger.Debug("extracted receipt",
		"lines", len(lines),
		"has_total", data.TotalAmount != nil,
		"date_defaulted", data.DateDefaulted,
		"has_merchant", data.Merchant != nil,
		"items", len(data.Items),
	)
	return data
}

func receiptDescription(merchant *string, items []string) string {
	label := defaultReceiptLabel
	if merchant != nil {
		label = *merchant
	}
	// the merchant header already leads the description
	summary := make([]string, 0, receiptSummaryItems)
	for _, item := range items {
		if len(summary) == receiptSummaryItems {
			break
		}
		if merchant != nil && item == *merchant {
			continue
		}
		summary = append(summary, item)
	}
	if len(summary) == 0 {
		return truncate(label, maxDescriptionLen)
	}
	return truncate(label+": "+strings.Join(summary, ", "), maxDescriptionLen)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var reSplitPhrases = regexp.MustCompile(`(?i)\b(?:split(?:ting)?\s+(?:it\s+)?(?:evenly|equally|between|with|among)|split|evenly|equally|pays?)\b`)

// fillerWords are dropped from either end of an expense description once the
// amount and names are gone ("Pizza with and" -> "Pizza").
var fillerWords = map[string]bool{
	"with": true, "and": true, "between": true, "among": true,
	"for": true, "to": true, "me": true, "&": true,
}

// ParseExpenseSentence turns a typed or spoken expense description into a
// ParsedExpense. The first amount in the sentence is the total.
func (p *Pipeline) ParseExpenseSentence(text string, members []Member) ParsedExpense {
	expense := ParsedExpense{
		Participants: ExtractParticipants(text, members),
	}

	var cuts []span
	decision := ClassifySplit(text, members)
	expense.SplitMethod = decision.Method
	switch decision.Method {
	case SplitPercentage:
		pct := decision.Percentage
		expense.Percentage = &pct
	case SplitManual:
		expense.ManualShares = decision.ManualShares
	}
	cuts = append(cuts, decision.clauses...)

	if amount, ok := firstAmount(text); ok {
		v := amount.Value
		expense.Amount = &v
		cuts = append(cuts, span{start: amount.Start, end: amount.End})
	}

	var names []span
	for _, m := range members {
		names = append(names, findWord(text, m.Name)...)
		// "Jose" typed for a member named "José"
		if folded := foldName(m.Name); folded != strings.ToLower(strings.TrimSpace(m.Name)) {
			names = append(names, findWord(text, folded)...)
		}
	}
	cuts = append(cuts, names...)

	if d, s, ok := p.casualDate(text, names); ok {
		expense.Date = &d
		cuts = append(cuts, s)
	}

	expense.Description = expenseDescription(cutSpans(text, cuts))

	p.logger.Debug("parsed expense",
		"has_amount", expense.Amount != nil,
		"participants", len(expense.Participants),
		"split_method", expense.SplitMethod,
		"has_date", expense.Date != nil,
	)
	return expense
}

var (
	reDateContext = regexp.MustCompile(`(?i)\d|\b(?:yesterday|today|tomorrow|tonight|ago|last|next|this|past)\b`)
	reFullWeekday = regexp.MustCompile(`(?i)^(?:mon|tues|wednes|thurs|fri|satur|sun)day$`)
	reOnBefore    = regexp.MustCompile(`(?i)\bon\s+$`)
)

// casualDate finds a relative or written date such as "yesterday" or
// "last friday" and returns it with its span in text. Member names are blanked
// first ("May"), and bare abbreviations or month names ("Sun chips") are
// skipped.
func (p *Pipeline) casualDate(text string, names []span) (time.Time, span, bool) {
	masked := []byte(text)
	for _, s := range names {
		for i := s.start; i < s.end; i++ {
			masked[i] = ' '
		}
	}
	search := string(masked)

	now := p.timeSource.Now()
	for offset := 0; offset < len(search); {
		r, err := p.dates.Parse(search[offset:], now)
		if err != nil || r == nil {
			break
		}
		s := span{start: offset + r.Index, end: offset + r.Index + len(r.Text)}
		if s.start < offset || s.end > len(search) || s.end <= s.start {
			break
		}
		if dateInContext(search, s) {
			return civilDate(r.Time.Year(), r.Time.Month(), r.Time.Day()), s, true
		}
		offset = s.end
	}
	return time.Time{}, span{}, false
}

func dateInContext(text string, s span) bool {
	matched := strings.TrimSpace(text[s.start:s.end])
	return reDateContext.MatchString(matched) ||
		reFullWeekday.MatchString(matched) ||
		reOnBefore.MatchString(text[:s.start])
}

func expenseDescription(rest string) string {
	rest = reSplitPhrases.ReplaceAllString(rest, " ")
	words := strings.Fields(rest)
	for len(words) > 0 && isFiller(words[0]) {
		words = words[1:]
	}
	for len(words) > 0 && isFiller(words[len(words)-1]) {
		words = words[:len(words)-1]
	}
	if len(words) == 0 {
		return defaultExpenseLabel
	}
	desc := strings.Join(words, " ")
	desc = strings.TrimRight(desc, ",;:-")
	return truncate(desc, maxDescriptionLen)
}

func isFiller(word string) bool {
	bare := strings.Trim(word, ",;:.!?-()")
	return bare == "" || fillerWords[strings.ToLower(bare)]
}

// ParseShoppingList splits list-style text into items and extracts quantity,
// weight and unit from each. Entries that reduce to nothing are dropped.
func (p *Pipeline) ParseShoppingList(text string) []ParsedListItem {
	items := make([]ParsedListItem, 0)
	for _, segment := range SplitSegments(text) {
		if item, ok := ExtractListItem(segment); ok {
			items = append(items, item)
		}
	}
	p.logger.Debug("parsed shopping list", "items", len(items))
	return items
}
