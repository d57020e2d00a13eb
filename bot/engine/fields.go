package engine

import (
	"regexp"
	"strings"
	"unicode"
)

// Greeting and self-introduction prefixes stripped before name extraction,
// matched case-insensitively at the start of the message.
var greetingPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*hola\s*,?\s*`),
	regexp.MustCompile(`(?i)^\s*buenos?\s+(d[ií]as?|tardes?|noches?)\s*,?\s*`),
	regexp.MustCompile(`(?i)^\s*que\s+tal\s*,?\s*`),
	regexp.MustCompile(`(?i)^\s*soy\s+`),
	regexp.MustCompile(`(?i)^\s*me\s+llamo\s+`),
	regexp.MustCompile(`(?i)^\s*mi\s+nombre\s+es\s+`),
}

var idRunPattern = regexp.MustCompile(`\b(\d{8}|\d{11})\b`)

// ExtractName cleans a self-introduction down to the bare name:
// "Hola soy Juan Perez" becomes "Juan Perez". Greeting prefixes are stripped,
// anything that is not a letter or whitespace is dropped, whitespace is
// collapsed, and the result is title-cased. Validation (at least two tokens)
// is the caller's policy, not the extractor's.
func ExtractName(text string) string {
	cleaned := text
	for _, pattern := range greetingPrefixes {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}

	var b strings.Builder
	for _, r := range cleaned {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return titleCase(strings.Join(strings.Fields(b.String()), " "))
}

// ExtractIDLocation pulls a national ID (8 digits) or tax ID (11 digits) out
// of combined input like "10283749, Lima". The digit run becomes the
// identifier; the remainder, punctuation collapsed and title-cased, becomes
// the location. Both come back empty when no 8- or 11-digit run exists.
func ExtractIDLocation(text string) (id, location string) {
	match := idRunPattern.FindString(text)
	if match == "" {
		return "", ""
	}
	rest := strings.Replace(text, match, "", 1)
	rest = strings.Join(strings.FieldsFunc(rest, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	}), " ")
	return match, titleCase(rest)
}

// ValidateCategory maps free text onto one of the two canonical vehicle
// categories, or empty when it matches neither synonym set.
func ValidateCategory(text string) string {
	lower := strings.ToLower(text)
	// "camioneta" contains "camion", so the pickup synonym wins first.
	if strings.Contains(lower, "camioneta") {
		return CategoryPickup
	}
	for _, kw := range []string{"camión", "camion", "isuzu"} {
		if strings.Contains(lower, kw) {
			return CategoryTruck
		}
	}
	return ""
}

// ValidateColor returns the canonical color contained in the text, or empty.
// Callers accept any non-empty text as a free-form color when this fails;
// color is low stakes.
func ValidateColor(text string) string {
	lower := strings.ToLower(text)
	for _, color := range validColors {
		if strings.Contains(lower, color) {
			return titleCase(color)
		}
	}
	return ""
}

var validColors = []string{"blanco", "rojo", "azul", "negro", "gris", "plata"}

// titleCase upper-cases the first letter of each word and lower-cases the
// rest. strings.Title is deprecated and the golang.org/x/text caser is
// overkill for plain Spanish names.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
