// Package retrieval holds the per-request retrieval log and metrics.
package retrieval

import "time"

// PassKind is one stage of stepwise retrieval.
type PassKind string

// Passes in execution order.
const (
	PassBroad     PassKind = "broad"
	PassPrefer    PassKind = "prefer_boost"
	PassExclude   PassKind = "exclude_filter"
	PassWhitelist PassKind = "whitelist_fallback"
)

// Passes returns every pass in execution order.
func Passes() []PassKind {
	return []PassKind{PassBroad, PassPrefer, PassExclude, PassWhitelist}
}

// Params are provider-facing parameters for one pass.
type Params struct {
	Lang string
	Num  int
}

// Pass failure reason codes beyond the retrieval error kinds.
const (
	ReasonDeadline = "deadline"
)

// PassRecord is the append-only log entry of one executed pass.
// Err is a coarse reason code; empty on success.
type PassRecord struct {
	Kind        PassKind
	ShapedQuery string
	ResultCount int
	Elapsed     time.Duration
	Err         string
	Attempts    int
}

// ElapsedMs returns the pass duration in milliseconds.
func (r PassRecord) ElapsedMs() int64 { return r.Elapsed.Milliseconds() }

// Failed reports whether the pass ended without results from the provider.
func (r PassRecord) Failed() bool { return r.Err != "" }
