package extraction

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// findWord returns the spans of every whole-word, case-insensitive occurrence
// of word in text. Go's \b is ASCII only, so boundaries are checked by hand to
// cope with names like "José".
func findWord(text, word string) []span {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}
	var spans []span
	for i := 0; i < len(text); {
		if n, ok := foldedPrefix(text[i:], word); ok && wordStartsAt(text, i) && wordEndsAt(text, i+n) {
			spans = append(spans, span{start: i, end: i + n})
			// resume right after the name so adjacent names share a separator
			i += n
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return spans
}

// foldedPrefix reports whether text starts with word under simple case
// folding, and how many bytes of text the match covers.
func foldedPrefix(text, word string) (int, bool) {
	n := 0
	for _, w := range word {
		if n >= len(text) {
			return 0, false
		}
		r, size := utf8.DecodeRuneInString(text[n:])
		if !equalFoldRune(r, w) {
			return 0, false
		}
		n += size
	}
	return n, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

// wordStartsAt treats a preceding apostrophe as part of the word, so "Neil"
// is not found in "O'Neil".
func wordStartsAt(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r) && r != '\''
}

func wordEndsAt(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// ExtractParticipants returns the IDs of the members whose names appear in
// text as whole words, in the order the members were supplied. Matching
// ignores case and diacritics.
func ExtractParticipants(text string, members []Member) []string {
	folded := foldName(text)
	ids := make([]string, 0)
	seen := make(map[string]bool)
	for _, m := range members {
		if seen[m.ID] {
			continue
		}
		if len(findWord(folded, foldName(m.Name))) > 0 {
			ids = append(ids, m.ID)
			seen[m.ID] = true
		}
	}
	return ids
}

// resolveMember finds the member whose folded name equals name.
func resolveMember(name string, members []Member) (Member, bool) {
	key := foldName(name)
	for _, m := range members {
		if foldName(m.Name) == key {
			return m, true
		}
	}
	return Member{}, false
}

var (
	rePercentSplit = regexp.MustCompile(`(?i)\b(?:(?:i|i'll)\s+(?:pays?|split)|split)\s+(\d{1,3})\s*%`)
	reManualShare  = regexp.MustCompile(`(?i)(\p{L}[\p{L}'-]*)\s+pays?\s+\$(\d{1,3}(?:,\d{3})+|\d+)(\.\d{1,2})?`)
)

// SplitDecision is the classifier's verdict for an expense sentence.
type SplitDecision struct {
	Method       SplitMethod
	Percentage   int
	ManualShares map[string]decimal.Decimal

	// clauses are the spans of text that expressed the split.
	clauses []span
}

// ClassifySplit decides how an expense is divided. A "<agent> pays N%" phrase
// means percentage; two or more "<name> pays $N" phrases with at least one
// known member mean manual; anything else is an even split.
func ClassifySplit(text string, members []Member) SplitDecision {
	if m := rePercentSplit.FindStringSubmatchIndex(text); m != nil {
		pct, err := strconv.Atoi(text[m[2]:m[3]])
		if err == nil && pct > 0 && pct <= 100 {
			return SplitDecision{
				Method:     SplitPercentage,
				Percentage: pct,
				clauses:    []span{{start: m[0], end: m[1]}},
			}
		}
	}

	matches := reManualShare.FindAllStringSubmatchIndex(text, -1)
	if len(matches) >= 2 {
		shares := make(map[string]decimal.Decimal)
		var clauses []span
		for _, m := range matches {
			member, ok := resolveMember(text[m[2]:m[3]], members)
			if !ok {
				continue
			}
			raw := strings.ReplaceAll(text[m[4]:m[5]], ",", "")
			if m[6] >= 0 {
				raw += text[m[6]:m[7]]
			}
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				continue
			}
			if _, dup := shares[member.ID]; !dup {
				shares[member.ID] = amount
			}
			clauses = append(clauses, span{start: m[0], end: m[1]})
		}
		if len(shares) > 0 {
			return SplitDecision{Method: SplitManual, ManualShares: shares, clauses: clauses}
		}
	}

	return SplitDecision{Method: SplitEven}
}
