// Package candidate holds externally retrieved recipe candidates.
package candidate

import (
	"net/url"
	"strings"
)

// Markup is the optional raw markup attached to a candidate.
// Each tier is independent; any of them may be empty.
type Markup struct {
	JSONLD    string `json:"jsonld,omitempty" yaml:"jsonld,omitempty"`
	Microdata string `json:"microdata,omitempty" yaml:"microdata,omitempty"`
	HTML      string `json:"html,omitempty" yaml:"html,omitempty"`
}

// Empty reports whether no markup tier is present.
func (m Markup) Empty() bool {
	return m.JSONLD == "" && m.Microdata == "" && m.HTML == ""
}

// Document is one externally retrieved item. Immutable once built.
type Document struct {
	url     string
	title   string
	snippet string
	markup  Markup
	key     string
	domain  string
}

// New creates a Document. Identity is derived from the normalized URL.
func New(rawURL, title, snippet string, markup Markup) Document {
	return Document{
		url:     rawURL,
		title:   title,
		snippet: snippet,
		markup:  markup,
		key:     NormalizeURL(rawURL),
		domain:  DomainOf(rawURL),
	}
}

// URL returns the URL as retrieved.
func (d Document) URL() string { return d.url }

// Title returns the title.
func (d Document) Title() string { return d.title }

// Snippet returns the search snippet.
func (d Document) Snippet() string { return d.snippet }

// Markup returns the raw markup tiers.
func (d Document) Markup() Markup { return d.markup }

// Key returns the identity of the document (normalized URL).
func (d Document) Key() string { return d.key }

// Domain returns the lowercased host without a leading "www.".
func (d Document) Domain() string { return d.domain }

// NormalizeURL lowercases scheme and host, strips "www.", drops the fragment
// and trailing slash. Unparseable input is returned trimmed and lowercased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	path := strings.TrimSuffix(u.EscapedPath(), "/")
	out := strings.ToLower(u.Scheme) + "://" + host + path
	if u.RawQuery != "" {
		out += "?" + u.RawQuery
	}
	return out
}

// DomainOf returns the lowercased host of raw without port and "www.".
func DomainOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
