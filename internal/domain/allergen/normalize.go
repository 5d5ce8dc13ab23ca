package allergen

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Normalize folds width variants, lowercases and maps every whitespace rune
// to a plain space. The mapping is rune-for-rune, so rune offsets into the
// result line up with rune offsets into the input.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		b.WriteRune(normalizeRune(r))
	}
	return b.String()
}

func normalizeRune(r rune) rune {
	if unicode.IsSpace(r) {
		return ' '
	}
	if f := width.LookupRune(r).Folded(); f != 0 {
		r = f
	}
	return unicode.ToLower(r)
}

// IsASCIIWord reports whether s consists only of ASCII letters, digits,
// spaces and hyphens. Such forms are matched on word boundaries.
func IsASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == ' ', c == '-':
		default:
			return false
		}
	}
	return s != ""
}

// IsWordRune reports whether r continues an ASCII word.
func IsWordRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
}
