package speech

import (
	"regexp"
	"strings"
)

const (
	referenceRegexPattern  = `\[\d+\]|[¹²³⁴⁵⁶⁷⁸⁹⁰]+`
	markupRegexPattern     = `(?m)\*+|_{2,}|^[ \t]*#+[ \t]*`
	whitespaceRegexPattern = `\s+`
)

var (
	referencePattern  = regexp.MustCompile(referenceRegexPattern)
	markupPattern     = regexp.MustCompile(markupRegexPattern)
	whitespacePattern = regexp.MustCompile(whitespaceRegexPattern)

	punctuationReplacer = strings.NewReplacer(
		"—", "-",
		"–", "-",
		"‒", "-",
		"…", "...",
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
)

// NormalizeText prepares section text for the speech model: footnote markers
// and leftover markdown are removed, typographic quotes and dashes become
// plain ASCII, and all whitespace runs collapse to a single space.
func NormalizeText(text string) string {
	text = referencePattern.ReplaceAllString(text, "")
	text = markupPattern.ReplaceAllString(text, "")
	text = punctuationReplacer.Replace(text)
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}
