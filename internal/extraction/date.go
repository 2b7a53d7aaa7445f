package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthPattern matches a month name or its abbreviation, never a longer word
// that starts like one ("Mayo", "Marble").
const monthPattern = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`

var (
	reSlashDate = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	reISODate   = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	reDayMonth  = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthPattern + `)\.?,?\s+(\d{4})\b`)

	// reDateShape is any of the above or a two-digit-year slash/dash date,
	// used to filter receipt lines rather than to extract.
	reDateShape = regexp.MustCompile(`(?i)\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}-\d{1,2}-\d{1,2}\b|\b\d{1,2}\s+(?:` + monthPattern + `)\.?\s+\d{4}\b`)
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// dateRules are tried in order; the first rule with any valid date wins and
// within it the first match in document order.
var dateRules = []Rule[time.Time]{
	{Name: "month-day-year", Find: findSlashDates},
	{Name: "iso", Find: findISODates},
	{Name: "day-month-year", Find: findDayMonthDates},
}

// TodayDefault is the policy applied when no date parses: a receipt without a
// legible date still gets a usable one.
func TodayDefault(now time.Time) time.Time {
	return civilDate(now.Year(), now.Month(), now.Day())
}

// ExtractDate returns the first date found in text and false, or today's date
// and true when nothing parses.
func ExtractDate(text string, now time.Time) (time.Time, bool) {
	if found := firstNonEmpty(text, dateRules); len(found) > 0 {
		return found[0].Value, false
	}
	return TodayDefault(now), true
}

func findSlashDates(text string) []Candidate[time.Time] {
	var found []Candidate[time.Time]
	for _, m := range reSlashDate.FindAllStringSubmatchIndex(text, -1) {
		first, _ := strconv.Atoi(text[m[2]:m[3]])
		second, _ := strconv.Atoi(text[m[4]:m[5]])
		year, _ := strconv.Atoi(text[m[6]:m[7]])

		// month-first, then day-first when the month is impossible
		d, ok := validDate(year, first, second)
		if !ok {
			d, ok = validDate(year, second, first)
		}
		if ok {
			found = append(found, Candidate[time.Time]{Value: d, Start: m[0], End: m[1]})
		}
	}
	return found
}

func findISODates(text string) []Candidate[time.Time] {
	var found []Candidate[time.Time]
	for _, m := range reISODate.FindAllStringSubmatchIndex(text, -1) {
		year, _ := strconv.Atoi(text[m[2]:m[3]])
		month, _ := strconv.Atoi(text[m[4]:m[5]])
		day, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := validDate(year, month, day); ok {
			found = append(found, Candidate[time.Time]{Value: d, Start: m[0], End: m[1]})
		}
	}
	return found
}

func findDayMonthDates(text string) []Candidate[time.Time] {
	var found []Candidate[time.Time]
	for _, m := range reDayMonth.FindAllStringSubmatchIndex(text, -1) {
		day, _ := strconv.Atoi(text[m[2]:m[3]])
		month := monthAbbrev[strings.ToLower(text[m[4]:m[4]+3])]
		year, _ := strconv.Atoi(text[m[6]:m[7]])
		if d, ok := validDate(year, int(month), day); ok {
			found = append(found, Candidate[time.Time]{Value: d, Start: m[0], End: m[1]})
		}
	}
	return found
}

// validDate builds a calendar date, rejecting anything time.Date would have to
// normalize (month 13, February 30).
func validDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 {
		return time.Time{}, false
	}
	d := civilDate(year, time.Month(month), day)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

func civilDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
