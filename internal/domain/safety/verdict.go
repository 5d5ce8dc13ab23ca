// Package safety holds the allergen safety verdict types.
package safety

import "github.com/kailas-cloud/recipegate/internal/domain/allergen"

// Status is the tri-state safety classification.
type Status string

// Safety statuses, ordered ok < ambiguous < ng by severity.
const (
	OK        Status = "ok"
	Ambiguous Status = "ambiguous"
	NG        Status = "ng"
)

func (s Status) severity() int {
	switch s {
	case NG:
		return 2
	case Ambiguous:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of s and o.
func (s Status) Worse(o Status) Status {
	if o.severity() > s.severity() {
		return o
	}
	return s
}

// Source is the markup tier a hit was found in.
type Source string

// Markup tiers in scan priority order.
const (
	Structured     Source = "structured"
	SemiStructured Source = "semiStructured"
	Heuristic      Source = "heuristic"
)

// Flag is a context cue observed in a hit's window.
type Flag string

// Context flags.
const (
	FlagExplicitFree Flag = "explicit_free"
	FlagFigurative   Flag = "figurative"
	FlagSubstitution Flag = "substitution"
	FlagTrace        Flag = "trace"
	FlagNegation     Flag = "negation"
)

// Reason codes reported on the verdict.
const (
	ReasonExplicitFree = "explicit_free"
	ReasonFigurative   = "figurative"
	ReasonSubstitution = "substitution"
	ReasonTrace        = "trace"
	ReasonNegationNear = "negation_near"
	ReasonHitToken     = "hit_token"
)

// Range is a half-open rune range [Start, End) into the normalized source text.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Hit is one located allergen occurrence.
type Hit struct {
	Allergen     allergen.Key `json:"allergen"`
	MatchedToken string       `json:"matchedToken"`
	Source       Source       `json:"source"`
	CharRange    Range        `json:"charRange"`
	Snippet      string       `json:"snippet"`
	ContextFlags []Flag       `json:"contextFlags,omitempty"`
}

// Status classifies a single hit.
func (h Hit) Status() Status {
	if len(h.ContextFlags) == 0 {
		return NG
	}
	for _, f := range h.ContextFlags {
		if f == FlagExplicitFree {
			return OK
		}
	}
	return Ambiguous
}

// Verdict is the safety outcome for one (document, selection) pair.
type Verdict struct {
	Status           Status         `json:"status"`
	CheckedAllergens []allergen.Key `json:"checkedAllergens"`
	HitAllergens     []allergen.Key `json:"hitAllergens"`
	ReasonCodes      []string       `json:"reasonCodes"`
	Hits             []Hit          `json:"hits"`
}

// Safe reports whether the verdict may be surfaced to the user.
// Ambiguous verdicts are treated as unsafe.
func (v Verdict) Safe() bool { return v.Status == OK }
