package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reWeighted = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s?(` + unitAlternation + `)\s+(?:of\s+)?(.+)$`)

	reCounted   = regexp.MustCompile(`^(\d+)\s*(?:(x|times|of|packs?|bottles?|box(?:es)?|bags?)\s+)?(?:of\s+)?(.+)$`)
	reCountLead = regexp.MustCompile(`^\d+ \p{L}`)

	reLeadingArticle = regexp.MustCompile(`^(?:a|an|the)(?:\s+|$)`)
	reNameTrim       = regexp.MustCompile(`^[\s\p{P}]+|[\s\p{P}]+$`)
)

// ExtractListItem pulls weight and unit, or a count, out of a single
// normalized list segment. The second result is false when nothing is left
// of the name once quantities and articles are removed.
func ExtractListItem(segment string) (ParsedListItem, bool) {
	var item ParsedListItem
	name := segment

	if m := reWeighted.FindStringSubmatch(segment); m != nil {
		if w, err := decimal.NewFromString(m[1]); err == nil && w.IsPositive() {
			item.Weight = &w
			item.WeightUnit = NormalizeUnit(m[2])
		}
		name = m[3]
	} else if m := reCounted.FindStringSubmatch(segment); m != nil && (m[2] != "" || reCountLead.MatchString(segment)) {
		if q, err := strconv.Atoi(m[1]); err == nil && q > 0 {
			item.Quantity = &q
		}
		name = m[3]
	}

	item.Name = cleanItemName(name)
	return item, item.Name != ""
}

func cleanItemName(name string) string {
	name = strings.TrimSpace(reWhitespace.ReplaceAllString(name, " "))
	name = reLeadingArticle.ReplaceAllString(name, "")
	name = reNameTrim.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}
