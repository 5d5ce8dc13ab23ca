package extract

import (
	"math"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/opt"
	"github.com/kailas-cloud/recipegate/internal/markup"
)

// JSONLD reads schema.org Recipe objects from JSON-LD markup.
// Only the first Recipe node is used.
type JSONLD struct{}

// Source implements Strategy.
func (JSONLD) Source() feature.Source { return feature.SourceJSONLD }

// Extract implements Strategy.
func (JSONLD) Extract(doc candidate.Document) (feature.Features, bool) {
	nodes := markup.RecipeNodes(doc.Markup().JSONLD)
	if len(nodes) == 0 {
		return feature.Features{}, false
	}
	n := nodes[0]

	var f feature.Features
	f.PrepMinutes = duration(n.String("prepTime"))
	f.CookMinutes = duration(n.String("cookTime"))
	f.TotalMinutes = duration(n.String("totalTime"))

	ingredients := n.Strings("recipeIngredient")
	if len(ingredients) == 0 {
		ingredients = n.Strings("ingredients")
	}
	if len(ingredients) > 0 {
		f.IngredientCount = opt.Of(len(ingredients))
	}

	steps := n.Strings("recipeInstructions")
	if len(steps) > 0 {
		f.StepCount = opt.Of(len(steps))
		if avg, ok := avgRuneLength(steps); ok {
			f.AvgInstructionLength = opt.Of(avg)
		}
	}

	if nut := n.Object("nutrition"); nut != nil {
		f.CaloriesPerServing = number(nut.String("calories"))
		f.ProteinGrams = number(nut.String("proteinContent"))
		f.MacrosPresent = nut.String("proteinContent") != "" ||
			nut.String("fatContent") != "" ||
			nut.String("carbohydrateContent") != ""
	}

	if rating := n.Object("aggregateRating"); rating != nil {
		count := rating.String("reviewCount")
		if count == "" {
			count = rating.String("ratingCount")
		}
		f.PopularityScore = popularity(rating.String("ratingValue"), count)
	}

	if v, ok := visualScore(n.String("image")); ok {
		f.VisualScore = opt.Of(v)
	}

	kw := keywords(n.Text())
	f.TimeKeywords, f.HealthKeywords = kw.time, kw.health
	f.BeginnerKeywords, f.EventKeywords = kw.beginner, kw.event
	return f, true
}

func duration(s string) opt.Value[int] {
	if m, ok := parseISODuration(s); ok {
		return opt.Of(m)
	}
	return opt.Unknown[int]()
}

func number(s string) opt.Value[float64] {
	if v, ok := parseNumber(s); ok {
		return opt.Of(v)
	}
	return opt.Unknown[float64]()
}

// popularity weights the rating by review volume: a 5-star recipe with a
// handful of reviews scores below one with hundreds.
func popularity(ratingValue, count string) opt.Value[float64] {
	rating, ok := parseNumber(ratingValue)
	if !ok {
		return opt.Unknown[float64]()
	}
	n, ok := parseNumber(count)
	if !ok {
		return opt.Of(rating)
	}
	return opt.Of(rating * math.Min(1, n/100))
}
