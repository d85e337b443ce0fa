package canonical

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var bracketExpr = regexp.MustCompile(`\([^()]*\)|\[[^\[\]]*\]`)

// sizeExpr joins "128 GB" into "128gb" so sizes tokenize the same however
// they are spaced.
var sizeExpr = regexp.MustCompile(`(\d+)\s+(gb|tb|mb)\b`)

var stopWords = map[string]struct{}{
	"with": {}, "and": {}, "for": {}, "the": {}, "edition": {},
}

// CanonicalizeTitle strips bracketed marketing text, cuts at the first "|",
// collapses whitespace and trims surrounding punctuation.
func CanonicalizeTitle(raw string) string {
	s := raw
	for {
		next := bracketExpr.ReplaceAllString(s, " ")
		if next == s {
			break
		}
		s = next
	}
	if i := strings.IndexByte(s, '|'); i >= 0 {
		s = s[:i]
	}
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimFunc(s, trimmable)
}

// trimmable keeps quote marks, which titles use for inches ("55\" TV").
func trimmable(r rune) bool {
	if r == '"' || r == '\'' {
		return false
	}
	return unicode.IsSpace(r) || unicode.IsPunct(r)
}

// Tokens splits a title into lowercase alphanumeric words, dropping single
// characters and stop words. Storage sizes become one token. Order follows
// the title.
func Tokens(title string) []string {
	lower := sizeExpr.ReplaceAllString(strings.ToLower(title), "${1}${2}")
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := words[:0]
	for _, w := range words {
		if len([]rune(w)) <= 1 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// TokenKey is the sorted, de-duplicated token list joined by spaces.
func TokenKey(tokens []string) string {
	uniq := make(map[string]struct{}, len(tokens))
	keys := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := uniq[t]; ok {
			continue
		}
		uniq[t] = struct{}{}
		keys = append(keys, t)
	}
	sort.Strings(keys)
	return strings.Join(keys, " ")
}
