package safety

import (
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domsafety "github.com/kailas-cloud/recipegate/internal/domain/safety"
	"github.com/kailas-cloud/recipegate/internal/markup"
)

// sourceText is one markup tier's text in original and normalized form.
// Normalization is rune-for-rune, so both share rune offsets.
type sourceText struct {
	source domsafety.Source
	orig   []rune
	normR  []rune
	norm   string
}

func newSourceText(src domsafety.Source, text string) sourceText {
	norm := allergen.Normalize(text)
	return sourceText{source: src, orig: []rune(text), normR: []rune(norm), norm: norm}
}

// slice returns runes [from, to) clamped to the text, from the normalized
// text when normalized is set, otherwise from the original.
func (s sourceText) slice(from, to int, normalized bool) string {
	rs := s.orig
	if normalized {
		rs = s.normR
	}
	if from < 0 {
		from = 0
	}
	if to > len(rs) {
		to = len(rs)
	}
	if from >= to {
		return ""
	}
	return string(rs[from:to])
}

// sourceTexts returns the scan tiers in priority order: JSON-LD, microdata,
// then title, snippet and visible HTML text. Empty tiers are omitted.
func sourceTexts(doc candidate.Document) []sourceText {
	m := doc.Markup()
	var out []sourceText

	var structured []string
	for _, n := range markup.RecipeNodes(m.JSONLD) {
		structured = append(structured, n.Text())
	}
	if t := strings.Join(structured, "\n"); t != "" {
		out = append(out, newSourceText(domsafety.Structured, t))
	}

	if m.Microdata != "" {
		if t := markup.ParseMicrodata(m.Microdata).Text(); t != "" {
			out = append(out, newSourceText(domsafety.SemiStructured, t))
		}
	}

	heuristic := []string{doc.Title(), doc.Snippet()}
	if m.HTML != "" {
		heuristic = append(heuristic, markup.ParsePage(m.HTML).Text)
	}
	if t := strings.TrimSpace(strings.Join(heuristic, "\n")); t != "" {
		out = append(out, newSourceText(domsafety.Heuristic, t))
	}
	return out
}
