// Package fixture is an ExternalSearch that serves canned results from a
// YAML or JSON file. It backs offline runs and demos.
package fixture

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

// Doc is one canned search hit.
type Doc struct {
	URL     string           `yaml:"url"`
	Title   string           `yaml:"title"`
	Snippet string           `yaml:"snippet"`
	Markup  candidate.Markup `yaml:"markup"`
}

// Entry serves Documents for shaped queries containing Match.
type Entry struct {
	Match     string `yaml:"match"`
	Documents []Doc  `yaml:"documents"`
}

// File is the fixture layout. Entries are tried in order; Documents is the
// fallback for queries no entry matches.
type File struct {
	Entries   []Entry `yaml:"entries"`
	Documents []Doc   `yaml:"documents"`
}

// Search serves a parsed fixture file. Safe for concurrent use.
type Search struct {
	file File
}

// Load reads a fixture file. JSON is accepted since it is valid YAML.
func Load(path string) (*Search, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture content.
func Parse(data []byte) (*Search, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &Search{file: f}, nil
}

// Search returns the documents of the first matching entry, capped at params.Num.
func (s *Search) Search(ctx context.Context, query string, params domretrieval.Params) ([]candidate.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs := s.file.Documents
	for _, e := range s.file.Entries {
		if e.Match == "" || strings.Contains(query, e.Match) {
			docs = e.Documents
			break
		}
	}
	if params.Num > 0 && len(docs) > params.Num {
		docs = docs[:params.Num]
	}

	out := make([]candidate.Document, len(docs))
	for i, d := range docs {
		out[i] = candidate.New(d.URL, d.Title, d.Snippet, d.Markup)
	}
	return out, nil
}
