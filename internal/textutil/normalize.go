package textutil

import (
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style)\b[^>]*>.*?</(script|style)\s*>`)
	tagPattern         = regexp.MustCompile(`<[^>]*>`)
)

// stopwords are the Spanish and English articles, conjunctions, and
// prepositions ignored by MatchKey.
var stopwords = map[string]struct{}{
	"el": {}, "la": {}, "los": {}, "las": {}, "un": {}, "una": {}, "unos": {}, "unas": {},
	"de": {}, "del": {}, "y": {}, "e": {}, "a": {}, "en": {},
	"the": {}, "of": {}, "and": {}, "to": {}, "for": {},
}

// Normalize canonicalizes a title or author for comparison: markup is
// stripped, HTML entities decoded, text lowercased, diacritics removed, and
// whitespace collapsed. Passes repeat until the output stops changing, so the
// result is stable under repeated application. A pass that changes its input
// strips a tag or decodes an entity, which shortens it or removes an
// ampersand, so the loop terminates.
func Normalize(text string) string {
	current := normalizeOnce(text)
	for {
		next := normalizeOnce(current)
		if next == current {
			return current
		}
		current = next
	}
}

func normalizeOnce(text string) string {
	if text == "" {
		return ""
	}
	text = StripMarkup(text)
	text = html.UnescapeString(text)
	text = strings.ToLower(text)
	text = RemoveDiacritics(text)
	return strings.Join(strings.Fields(text), " ")
}

// StripMarkup removes HTML tags, dropping script and style bodies entirely.
func StripMarkup(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	text = scriptStylePattern.ReplaceAllString(text, "")
	return tagPattern.ReplaceAllString(text, "")
}

// RemoveDiacritics folds accented characters to their base letters
// ("García Márquez" becomes "Garcia Marquez").
func RemoveDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// MatchKey is the stricter, order-insensitive form of Normalize used for fuzzy
// comparison. Punctuation becomes whitespace, stopwords are dropped, and the
// remaining tokens are sorted, so "Julio César" and "César, Julio" share a key.
func MatchKey(text string) string {
	normalized := Normalize(text)
	if normalized == "" {
		return ""
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, normalized)

	fields := strings.Fields(cleaned)
	tokens := fields[:0]
	for _, token := range fields {
		if _, skip := stopwords[token]; skip {
			continue
		}
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
