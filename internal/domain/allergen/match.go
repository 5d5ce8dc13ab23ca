package allergen

import (
	"strings"
	"unicode/utf8"
)

// IndexAll returns the byte offsets of every non-overlapping occurrence of
// word in text. Both must be normalized. ASCII words only match on word
// boundaries, so "egg" does not match inside "eggplant".
func IndexAll(text, word string) []int {
	if word == "" {
		return nil
	}
	ascii := IsASCIIWord(word)
	var out []int
	for from := 0; from <= len(text)-len(word); {
		i := strings.Index(text[from:], word)
		if i < 0 {
			break
		}
		start := from + i
		end := start + len(word)
		if !ascii || onBoundary(text, start, end) {
			out = append(out, start)
			from = end
			continue
		}
		from = start + 1
	}
	return out
}

// IndexForm returns the byte offsets of every non-overlapping occurrence of
// an allergen form in text, ignoring word boundaries: "butter" matches in
// "buttermilk" and "wheat" in "wholewheat". Callers mask false friends.
func IndexForm(text, form string) []int {
	if form == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(text)-len(form); {
		i := strings.Index(text[from:], form)
		if i < 0 {
			break
		}
		out = append(out, from+i)
		from += i + len(form)
	}
	return out
}

// FindCue returns the first cue present in text, honoring word boundaries
// for ASCII cues.
func FindCue(text string, cues []string) (string, bool) {
	for _, c := range cues {
		if len(IndexAll(text, c)) > 0 {
			return c, true
		}
	}
	return "", false
}

func onBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if IsWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if IsWordRune(r) {
			return false
		}
	}
	return true
}
