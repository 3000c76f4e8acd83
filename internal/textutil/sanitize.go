package textutil

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearRunPattern     = regexp.MustCompile(`\b(\d{4})\b`)
	isbnDisallowed     = regexp.MustCompile(`[^0-9Xx-]`)
	subtitleSeparators = []string{":", " - ", " – ", " — ", "-", "–", "—"}
)

// ParseYear reads a user-supplied year. Non-digits are discarded and values that
// are not positive yield nil.
func ParseYear(value string) *int {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, value)
	if digits == "" || len(digits) > 9 {
		return nil
	}
	year, err := strconv.Atoi(digits)
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}

// ExtractYear returns the first standalone four-digit run in a date-like
// string ("March 3, 1967", "1967-05-30"), or nil.
func ExtractYear(value string) *int {
	match := yearRunPattern.FindStringSubmatch(value)
	if match == nil {
		return nil
	}
	year, err := strconv.Atoi(match[1])
	if err != nil || year <= 0 {
		return nil
	}
	return &year
}

// SanitizeISBN keeps digits, X, and hyphens.
func SanitizeISBN(value string) string {
	return isbnDisallowed.ReplaceAllString(strings.TrimSpace(value), "")
}

// SimplifyTitle drops a subtitle by cutting at the first colon or dash. The
// original title is returned when the cut would leave nothing.
func SimplifyTitle(title string) string {
	title = strings.TrimSpace(title)
	cut := len(title)
	for _, sep := range subtitleSeparators {
		if idx := strings.Index(title, sep); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	simplified := strings.TrimSpace(title[:cut])
	if simplified == "" {
		return title
	}
	return simplified
}
