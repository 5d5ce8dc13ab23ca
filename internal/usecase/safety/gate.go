// Package safety implements the allergen safety gate.
package safety

import (
	"sort"
	"unicode/utf8"

	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domsafety "github.com/kailas-cloud/recipegate/internal/domain/safety"
)

const (
	defaultWindow  = 30
	defaultSnippet = 20
)

// Gate classifies allergen occurrences in a candidate's text.
// It is stateless and safe for concurrent use.
type Gate struct {
	window  int
	snippet int
}

// NewGate creates a Gate with a ±30 rune context window.
func NewGate() *Gate {
	return &Gate{window: defaultWindow, snippet: defaultSnippet}
}

// WithWindow overrides the context window radius in runes.
func (g *Gate) WithWindow(runes int) *Gate {
	if runes > 0 {
		g.window = runes
	}
	return g
}

// Evaluate scans every markup tier of doc for the selected allergens.
// An empty selection returns ok without scanning.
func (g *Gate) Evaluate(doc candidate.Document, sel allergen.Selection) domsafety.Verdict {
	v := domsafety.Verdict{
		Status:           domsafety.OK,
		CheckedAllergens: sel.Keys(),
		HitAllergens:     []allergen.Key{},
		ReasonCodes:      []string{},
		Hits:             []domsafety.Hit{},
	}
	if sel.Empty() {
		return v
	}

	texts := sourceTexts(doc)
	reasons := newReasonSet()

	for _, key := range sel.Keys() {
		entry, ok := allergen.Lookup(key)
		if !ok {
			continue
		}
		local := domsafety.OK
		for _, st := range texts {
			for _, hit := range g.scan(entry, st) {
				v.Hits = append(v.Hits, hit)
				reasons.addHit(hit)
				local = local.Worse(hit.Status())
			}
		}
		if local != domsafety.OK {
			v.HitAllergens = append(v.HitAllergens, key)
		}
		v.Status = v.Status.Worse(local)
	}

	v.ReasonCodes = reasons.list()
	return v
}

type occurrence struct {
	start, end int // byte offsets into the normalized text
	form       string
}

func (g *Gate) scan(entry *allergen.Entry, st sourceText) []domsafety.Hit {
	occs := findOccurrences(entry, st.norm)
	if len(occs) == 0 {
		return nil
	}
	hits := make([]domsafety.Hit, 0, len(occs))
	for _, o := range occs {
		rs := utf8.RuneCountInString(st.norm[:o.start])
		re := rs + utf8.RuneCountInString(o.form)
		window := st.slice(rs-g.window, re+g.window, true)
		hits = append(hits, domsafety.Hit{
			Allergen:     entry.Key,
			MatchedToken: st.slice(rs, re, false),
			Source:       st.source,
			CharRange:    domsafety.Range{Start: rs, End: re},
			Snippet:      st.slice(rs-g.snippet, re+g.snippet, false),
			ContextFlags: classify(entry, window),
		})
	}
	return hits
}

// findOccurrences locates every form, longest first, without overlaps.
// Forms match inside longer words ("cheesecake"); occurrences inside a false
// friend ("豆乳", "eggplant") are skipped.
func findOccurrences(entry *allergen.Entry, text string) []occurrence {
	var blocked [][2]int
	for _, ff := range entry.FalseFriends {
		for _, i := range allergen.IndexForm(text, ff) {
			blocked = append(blocked, [2]int{i, i + len(ff)})
		}
	}

	forms := make([]string, len(entry.Forms))
	copy(forms, entry.Forms)
	sort.SliceStable(forms, func(i, j int) bool { return len(forms[i]) > len(forms[j]) })

	var occs []occurrence
	for _, f := range forms {
		for _, i := range allergen.IndexForm(text, f) {
			o := occurrence{start: i, end: i + len(f), form: f}
			if overlapsAny(o.start, o.end, blocked) {
				continue
			}
			occs = append(occs, o)
			blocked = append(blocked, [2]int{o.start, o.end})
		}
	}
	sort.Slice(occs, func(i, j int) bool { return occs[i].start < occs[j].start })
	return occs
}

func overlapsAny(start, end int, ranges [][2]int) bool {
	for _, r := range ranges {
		if start < r[1] && r[0] < end {
			return true
		}
	}
	return false
}

// classify inspects the window around one occurrence. An explicit-free
// phrase neutralizes the occurrence; figurative, substitution, trace and bare
// negation cues make it ambiguous; no cue at all makes it a hard hit.
func classify(entry *allergen.Entry, window string) []domsafety.Flag {
	if entry.ExplicitFree().MatchString(window) {
		return []domsafety.Flag{domsafety.FlagExplicitFree}
	}
	var flags []domsafety.Flag
	if _, ok := allergen.FindCue(window, allergen.FigurativeCues); ok {
		flags = append(flags, domsafety.FlagFigurative)
	}
	if _, ok := allergen.FindCue(window, allergen.SubstitutionCues); ok {
		flags = append(flags, domsafety.FlagSubstitution)
	}
	if _, ok := allergen.FindCue(window, allergen.TraceCues); ok {
		flags = append(flags, domsafety.FlagTrace)
	}
	if _, ok := allergen.FindCue(window, allergen.NegationCues); ok {
		flags = append(flags, domsafety.FlagNegation)
	}
	return flags
}

var flagReason = map[domsafety.Flag]string{
	domsafety.FlagExplicitFree: domsafety.ReasonExplicitFree,
	domsafety.FlagFigurative:   domsafety.ReasonFigurative,
	domsafety.FlagSubstitution: domsafety.ReasonSubstitution,
	domsafety.FlagTrace:        domsafety.ReasonTrace,
	domsafety.FlagNegation:     domsafety.ReasonNegationNear,
}

type reasonSet struct {
	seen  map[string]struct{}
	order []string
}

func newReasonSet() *reasonSet {
	return &reasonSet{seen: make(map[string]struct{})}
}

func (r *reasonSet) add(code string) {
	if _, ok := r.seen[code]; ok {
		return
	}
	r.seen[code] = struct{}{}
	r.order = append(r.order, code)
}

func (r *reasonSet) addHit(h domsafety.Hit) {
	if len(h.ContextFlags) == 0 {
		r.add(domsafety.ReasonHitToken)
		return
	}
	for _, f := range h.ContextFlags {
		r.add(flagReason[f])
	}
}

func (r *reasonSet) list() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
