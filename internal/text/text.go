package text

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// HasVisibleContent reports whether text contains at least one printable,
// non-space rune in any script.
func HasVisibleContent(text string) bool {
	for _, r := range text {
		if unicode.IsGraphic(r) && !unicode.IsSpace(r) {
			return true
		}
	}
	return false
}

// NormalizeText collapses runs of whitespace (including line breaks) into a
// single ASCII space and trims both ends.
func NormalizeText(input string) string {
	if input == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(input))
	lastSpace := true
	for _, c := range input {
		if unicode.IsSpace(c) {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(c)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// NormalizeCell turns raw extracted cell text into its canonical form. With
// fold set, NFKC maps full-width forms such as "ＥＤ－０１" to "ED-01".
func NormalizeCell(input string, fold bool) string {
	if input == "" {
		return ""
	}
	input = strings.ToValidUTF8(input, "")
	input = strings.ReplaceAll(input, "\ufffd", "")
	if fold {
		input = norm.NFKC.String(input)
	}
	return NormalizeText(input)
}

// RuneLen is the number of characters in s after trimming surrounding space.
func RuneLen(s string) int { return utf8.RuneCountInString(strings.TrimSpace(s)) }

// ContainsAny reports whether s contains at least one of the non-empty markers.
func ContainsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// IsPunctOrDigit marks runes around which PDF producers often emit wide
// glyph gaps that are not word breaks.
func IsPunctOrDigit(r rune) bool {
	return r == '.' || r == ',' || r == '$' || r == '%' || r == ':' || r == ';' || r == '\'' || r == '"' || r == '-' || r == '(' || r == ')' || (r >= '0' && r <= '9')
}

// IsWide reports East Asian wide runes, which are never separated by spaces.
func IsWide(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) ||
		(r >= 0x3000 && r <= 0x303F) || (r >= 0xFF00 && r <= 0xFFEF)
}
