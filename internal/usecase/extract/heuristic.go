package extract

import (
	"regexp"
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/opt"
	"github.com/kailas-cloud/recipegate/internal/markup"
)

const (
	maxHeuristicMinutes = 180
	maxIngredientCount  = 50
	maxStepMarker       = 30
	minCalories         = 50
	maxCalories         = 2000
)

var (
	minutesPattern    = regexp.MustCompile(`(?i)(\d+)\s*(?:分間?|minutes?|mins?\b)`)
	hoursPattern      = regexp.MustCompile(`(?i)(\d+)\s*(?:時間|hours?|hrs?\b)`)
	ingredientPattern = regexp.MustCompile(`(?i)材料\s*[(（]?\s*(\d+)\s*(?:個|種類?|つ|品)|(\d+)\s*種類|(\d+)\s*ingredients|ingredients?\s*[:：]\s*(\d+)`)
	stepPattern       = regexp.MustCompile(`(?i)(?:手順|ステップ|step)\s*(\d+)`)
	caloriePattern    = regexp.MustCompile(`(?i)(\d{2,4})\s*(?:kcal|キロカロリー|カロリー|cal\b)`)
	proteinPattern    = regexp.MustCompile(`(?i)(?:たんぱく質|タンパク質|protein)\s*[:：]?\s*(\d+(?:\.\d+)?)\s*g`)
)

// Heuristic reads title, snippet and visible HTML text with regular
// expressions. It is the fallback for pages without structured markup.
type Heuristic struct{}

// Source implements Strategy.
func (Heuristic) Source() feature.Source { return feature.SourceHeuristic }

// Extract implements Strategy.
func (Heuristic) Extract(doc candidate.Document) (feature.Features, bool) {
	var page markup.Page
	if raw := doc.Markup().HTML; raw != "" {
		page = markup.ParsePage(raw)
	}
	text := strings.TrimSpace(strings.Join([]string{doc.Title(), doc.Snippet(), page.Text}, "\n"))
	if text == "" {
		return feature.Features{}, false
	}

	var f feature.Features
	if m, ok := MinutesInText(text); ok {
		f.PrepMinutes = opt.Of(m)
	}
	if n, ok := IngredientsInText(text); ok {
		f.IngredientCount = opt.Of(n)
	}
	if n, ok := StepsInText(text); ok {
		f.StepCount = opt.Of(n)
	} else if page.ListItems > 0 {
		f.StepCount = opt.Of(page.ListItems)
	}
	if c, ok := CaloriesInText(text); ok {
		f.CaloriesPerServing = opt.Of(c)
	}
	if m := proteinPattern.FindStringSubmatch(text); m != nil {
		if p, ok := parseNumber(m[1]); ok {
			f.ProteinGrams = opt.Of(p)
			f.MacrosPresent = true
		}
	}
	if len(page.Images) > 0 {
		if v, ok := visualScore(page.Images[0]); ok {
			f.VisualScore = opt.Of(v)
		}
	}

	kw := keywords(text)
	f.TimeKeywords, f.HealthKeywords = kw.time, kw.health
	f.BeginnerKeywords, f.EventKeywords = kw.beginner, kw.event

	if f.Completion() == 0 {
		return feature.Features{}, false
	}
	return f, true
}

// MinutesInText returns the shortest plausible duration mentioned in text,
// capped at three hours.
func MinutesInText(text string) (int, bool) {
	best, found := 0, false
	consider := func(m int) {
		if m <= 0 || m > maxHeuristicMinutes {
			return
		}
		if !found || m < best {
			best, found = m, true
		}
	}
	for _, m := range minutesPattern.FindAllStringSubmatch(text, -1) {
		consider(atoi(m[1]))
	}
	for _, m := range hoursPattern.FindAllStringSubmatch(text, -1) {
		consider(atoi(m[1]) * 60)
	}
	return best, found
}

// IngredientsInText reads an explicit ingredient count ("材料5個", "7 ingredients").
func IngredientsInText(text string) (int, bool) {
	m := ingredientPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if n := atoi(g); n > 0 && n <= maxIngredientCount {
			return n, true
		}
	}
	return 0, false
}

// StepsInText returns the highest numbered step marker ("手順3", "Step 5").
func StepsInText(text string) (int, bool) {
	best := 0
	for _, m := range stepPattern.FindAllStringSubmatch(text, -1) {
		if n := atoi(m[1]); n > best && n <= maxStepMarker {
			best = n
		}
	}
	return best, best > 0
}

// CaloriesInText returns the lowest plausible calorie figure in text.
func CaloriesInText(text string) (float64, bool) {
	best, found := 0, false
	for _, m := range caloriePattern.FindAllStringSubmatch(text, -1) {
		c := atoi(m[1])
		if c < minCalories || c > maxCalories {
			continue
		}
		if !found || c < best {
			best, found = c, true
		}
	}
	return float64(best), found
}
