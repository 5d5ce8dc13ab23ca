// Package policy classifies source domains for retrieval and trust scoring.
package policy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
)

// Kind is a domain classification.
type Kind string

// Policy kinds.
const (
	Prefer    Kind = "prefer"
	Exclude   Kind = "exclude"
	Whitelist Kind = "whitelist"
	Neutral   Kind = "neutral"
)

// Kinds returns every kind in display order.
func Kinds() []Kind { return []Kind{Prefer, Exclude, Whitelist, Neutral} }

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == Prefer || k == Exclude || k == Whitelist || k == Neutral
}

// MaxBoost bounds admin-supplied boost factors.
const MaxBoost = 5.0

// Policy is the classification of one registrable domain.
type Policy struct {
	Domain string
	Kind   Kind
	Boost  float64
	Reason string
}

// NeutralFor returns the fallback policy for an unclassified domain.
func NeutralFor(d string) Policy {
	return Policy{Domain: d, Kind: Neutral, Boost: 1.0, Reason: "no specific policy"}
}

// Validate checks the policy for admin writes.
func (p Policy) Validate() error {
	if NormalizeDomain(p.Domain) == "" {
		return fmt.Errorf("%w: domain is required", domain.ErrInvalidPolicy)
	}
	if !p.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidPolicy, p.Kind)
	}
	if p.Boost <= 0 || p.Boost > MaxBoost || math.IsNaN(p.Boost) {
		return fmt.Errorf("%w: boost must be in (0, %g]", domain.ErrInvalidPolicy, MaxBoost)
	}
	return nil
}

// NormalizeDomain lowercases d and strips a leading "www." and any port.
// Full URLs are accepted.
func NormalizeDomain(d string) string {
	d = strings.TrimSpace(d)
	if strings.Contains(d, "://") {
		return candidate.DomainOf(d)
	}
	d = strings.ToLower(strings.TrimSuffix(d, "."))
	if i := strings.IndexByte(d, '/'); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndexByte(d, ':'); i >= 0 {
		d = d[:i]
	}
	return strings.TrimPrefix(d, "www.")
}

// Table is an immutable snapshot of domain policies.
// Mutating methods return a new Table.
type Table struct {
	byDomain map[string]Policy
}

// NewTable builds a snapshot. Later entries for the same domain win.
func NewTable(policies []Policy) *Table {
	t := &Table{byDomain: make(map[string]Policy, len(policies))}
	for _, p := range policies {
		p.Domain = NormalizeDomain(p.Domain)
		if p.Domain == "" {
			continue
		}
		t.byDomain[p.Domain] = p
	}
	return t
}

// Lookup returns the policy for a domain or URL. Subdomains fall back to
// the nearest registered parent; unknown domains are neutral.
func (t *Table) Lookup(domainOrURL string) Policy {
	d := NormalizeDomain(domainOrURL)
	for cur := d; cur != ""; {
		if p, ok := t.byDomain[cur]; ok {
			return p
		}
		i := strings.IndexByte(cur, '.')
		if i < 0 {
			break
		}
		cur = cur[i+1:]
		if !strings.Contains(cur, ".") {
			break // never match a bare TLD
		}
	}
	return NeutralFor(d)
}

// Get returns the policy registered for exactly d.
func (t *Table) Get(d string) (Policy, bool) {
	p, ok := t.byDomain[NormalizeDomain(d)]
	return p, ok
}

// With returns a copy of t with p upserted.
func (t *Table) With(p Policy) *Table {
	next := t.clone()
	p.Domain = NormalizeDomain(p.Domain)
	next.byDomain[p.Domain] = p
	return next
}

// Without returns a copy of t without d.
func (t *Table) Without(d string) *Table {
	next := t.clone()
	delete(next.byDomain, NormalizeDomain(d))
	return next
}

// Len returns the number of registered domains.
func (t *Table) Len() int { return len(t.byDomain) }

// All returns every policy sorted by kind then domain.
func (t *Table) All() []Policy {
	out := make([]Policy, 0, len(t.byDomain))
	for _, p := range t.byDomain {
		out = append(out, p)
	}
	order := map[Kind]int{Prefer: 0, Exclude: 1, Whitelist: 2, Neutral: 3}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return order[out[i].Kind] < order[out[j].Kind]
		}
		return out[i].Domain < out[j].Domain
	})
	return out
}

// ByKind groups policies by kind. Every kind is present in the result.
func (t *Table) ByKind() map[Kind][]Policy {
	out := make(map[Kind][]Policy, 4)
	for _, k := range Kinds() {
		out[k] = []Policy{}
	}
	for _, p := range t.All() {
		out[p.Kind] = append(out[p.Kind], p)
	}
	return out
}

func (t *Table) clone() *Table {
	next := &Table{byDomain: make(map[string]Policy, len(t.byDomain)+1)}
	for k, v := range t.byDomain {
		next.byDomain[k] = v
	}
	return next
}

// Merge returns base with overrides applied on top, sorted like All.
// A later entry for the same domain replaces an earlier one.
func Merge(base, overrides []Policy) []Policy {
	if len(overrides) == 0 {
		return base
	}
	t := NewTable(base)
	for _, p := range overrides {
		t = t.With(p)
	}
	return t.All()
}
