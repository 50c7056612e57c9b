package core

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`(19|20)\d{2}`)

// DeriveYear returns the first 4-digit token starting with 19 or 20, or 0.
// The token may appear anywhere, including inside a longer word.
func DeriveYear(text string) int {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0
	}
	year, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return year
}

// DeriveLanguage returns the first vocabulary language mentioned in text.
func DeriveLanguage(text string) Language {
	lower := strings.ToLower(text)
	for _, lang := range KnownLanguages {
		if strings.Contains(lower, strings.ToLower(string(lang))) {
			return lang
		}
	}
	return LanguageUnknown
}

// ParseLanguage maps a language name back to its tag, case-insensitively.
func ParseLanguage(name string) (Language, bool) {
	for _, lang := range append(KnownLanguages, LanguageUnknown) {
		if strings.EqualFold(name, string(lang)) {
			return lang, true
		}
	}
	return "", false
}

// TrimQuery strips surrounding whitespace from a raw query.
func TrimQuery(raw string) string {
	return strings.TrimSpace(raw)
}

// NormalizeQuery trims and lower-cases a query for use as a grouping key.
func NormalizeQuery(raw string) string {
	return strings.ToLower(TrimQuery(raw))
}

// Excerpt returns the first line of text truncated to maxRunes runes.
func Excerpt(text string, maxRunes int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)
	if maxRunes <= 0 {
		return line
	}
	runes := []rune(line)
	if len(runes) > maxRunes {
		return string(runes[:maxRunes])
	}
	return line
}
