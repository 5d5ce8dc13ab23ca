package policy

import (
	"strconv"

	"github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

// excludeCutoff is the boost below which exclude-listed domains are
// dropped in the exclude pass.
const excludeCutoff = 0.2

// passKind maps each policy kind to the only pass it may act in.
var passKind = map[Kind]retrieval.PassKind{
	Prefer:    retrieval.PassPrefer,
	Exclude:   retrieval.PassExclude,
	Whitelist: retrieval.PassWhitelist,
}

// ApplyBoost multiplies score by the domain's boost when the policy kind
// matches pass. Outside its pass a policy never changes the score.
func (t *Table) ApplyBoost(score float64, rawURL string, pass retrieval.PassKind) (float64, string) {
	p := t.Lookup(rawURL)
	if want, ok := passKind[p.Kind]; !ok || want != pass {
		return score, "no_boost"
	}
	factor := strconv.FormatFloat(p.Boost, 'f', -1, 64)
	if p.Kind == Exclude {
		return score * p.Boost, "exclude_penalty_" + factor
	}
	return score * p.Boost, string(p.Kind) + "_boost_" + factor
}

// ShouldExclude reports whether rawURL is dropped in pass: only the exclude
// pass drops, and only exclude-listed domains with a boost below 0.2.
func (t *Table) ShouldExclude(rawURL string, pass retrieval.PassKind) bool {
	if pass != retrieval.PassExclude {
		return false
	}
	p := t.Lookup(rawURL)
	return p.Kind == Exclude && p.Boost < excludeCutoff
}

// Stats are per-domain serving counters.
type Stats struct {
	Domain      string
	Impressions int64
	Clicks      int64
	Violations  int64
}

// CTR returns clicks per impression.
func (s Stats) CTR() float64 {
	if s.Impressions == 0 {
		return 0
	}
	return float64(s.Clicks) / float64(s.Impressions)
}
