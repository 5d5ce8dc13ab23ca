// Package intent defines the usage context a search is ranked for.
package intent

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain"
)

// Kind is a named usage context.
type Kind string

// Supported contexts. None disables context gating.
const (
	None     Kind = ""
	Quick    Kind = "quick"
	Healthy  Kind = "healthy"
	Beginner Kind = "beginner"
	Event    Kind = "special-occasion"
)

var aliases = map[string]Kind{
	"":                 None,
	"none":             None,
	"quick":            Quick,
	"time_saving":      Quick,
	"time-saving":      Quick,
	"時短":               Quick,
	"healthy":          Healthy,
	"health":           Healthy,
	"健康":               Healthy,
	"beginner":         Beginner,
	"初心者":              Beginner,
	"special-occasion": Event,
	"special_occasion": Event,
	"event":            Event,
	"イベント":             Event,
}

// Parse resolves a context name or alias.
func Parse(raw string) (Kind, error) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return None, fmt.Errorf("%w: %q", domain.ErrUnknownContext, raw)
	}
	return k, nil
}

// IsValid checks if the kind is one of the supported values.
func (k Kind) IsValid() bool {
	return k == None || k == Quick || k == Healthy || k == Beginner || k == Event
}

// Selected reports whether a context was chosen.
func (k Kind) Selected() bool { return k != None }

// All returns the selectable contexts.
func All() []Kind {
	return []Kind{Quick, Healthy, Beginner, Event}
}
