// Package ranking holds the ranked output of the pipeline.
package ranking

import (
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/safety"
	"github.com/kailas-cloud/recipegate/internal/domain/score"
)

// ChipKind groups evidence chips.
type ChipKind string

// Chip kinds.
const (
	ChipTime       ChipKind = "time"
	ChipHealth     ChipKind = "health"
	ChipBeginner   ChipKind = "beginner"
	ChipEvent      ChipKind = "event"
	ChipQuality    ChipKind = "quality"
	ChipPopularity ChipKind = "popularity"
)

// Tone is the display emphasis of a chip.
type Tone string

// Chip tones.
const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneAccent  Tone = "accent"
)

// MaxChips bounds the chips attached to one result.
const MaxChips = 4

// Chip is a short human-readable justification tag.
type Chip struct {
	Text string
	Kind ChipKind
	Tone Tone
}

// Scored is a candidate after safety, extraction and scoring.
type Scored struct {
	Document candidate.Document
	Verdict  safety.Verdict
	Features feature.Features
	Score    score.Breakdown
	Gate     score.GateResult
	Chips    []Chip
	// BoostReason records a pass-specific domain boost, if any.
	BoostReason string
}

// Result is one entry of the final ranked list. Never mutated once emitted.
type Result struct {
	Scored
	Domain        string
	Relevance     float64
	Novelty       float64
	DiversityRank int
}
