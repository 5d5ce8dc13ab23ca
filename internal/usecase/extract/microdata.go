package extract

import (
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/opt"
	"github.com/kailas-cloud/recipegate/internal/markup"
)

// Microdata reads schema.org itemprop attributes.
type Microdata struct{}

// Source implements Strategy.
func (Microdata) Source() feature.Source { return feature.SourceMicrodata }

// Extract implements Strategy.
func (Microdata) Extract(doc candidate.Document) (feature.Features, bool) {
	raw := doc.Markup().Microdata
	if raw == "" {
		return feature.Features{}, false
	}
	md := markup.ParseMicrodata(raw)
	if len(md) == 0 {
		return feature.Features{}, false
	}

	var f feature.Features
	f.PrepMinutes = mdDuration(md.First("prepTime"))
	f.CookMinutes = mdDuration(md.First("cookTime"))
	f.TotalMinutes = mdDuration(md.First("totalTime"))

	if n := md.Count("recipeIngredient", "ingredients"); n > 0 {
		f.IngredientCount = opt.Of(n)
	}
	steps := append(append([]string(nil), md["recipeInstructions"]...), md["step"]...)
	if len(steps) > 0 {
		f.StepCount = opt.Of(len(steps))
		if avg, ok := avgRuneLength(steps); ok {
			f.AvgInstructionLength = opt.Of(avg)
		}
	}

	f.CaloriesPerServing = number(md.First("calories"))
	f.ProteinGrams = number(md.First("proteinContent"))
	f.MacrosPresent = md.First("proteinContent") != "" ||
		md.First("fatContent") != "" ||
		md.First("carbohydrateContent") != ""

	count := md.First("reviewCount")
	if count == "" {
		count = md.First("ratingCount")
	}
	f.PopularityScore = popularity(md.First("ratingValue"), count)

	if v, ok := visualScore(md.First("image")); ok {
		f.VisualScore = opt.Of(v)
	}

	kw := keywords(md.Text())
	f.TimeKeywords, f.HealthKeywords = kw.time, kw.health
	f.BeginnerKeywords, f.EventKeywords = kw.beginner, kw.event
	return f, true
}

// mdDuration accepts an ISO duration or free text such as "15分" / "20 min".
func mdDuration(s string) opt.Value[int] {
	if s == "" {
		return opt.Unknown[int]()
	}
	if m, ok := parseISODuration(s); ok {
		return opt.Of(m)
	}
	if m, ok := MinutesInText(s); ok {
		return opt.Of(m)
	}
	return opt.Unknown[int]()
}
