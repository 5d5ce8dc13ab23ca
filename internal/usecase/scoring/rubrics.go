package scoring

import (
	"math"

	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	"github.com/kailas-cloud/recipegate/internal/domain/score"
)

// contextScore returns the 0-20 context component.
func contextScore(f feature.Features, k intent.Kind, med MedianTable) float64 {
	var v float64
	switch k {
	case intent.Quick:
		v = quickRubric(f, med)
	case intent.Healthy:
		v = healthRubric(f)
	case intent.Beginner:
		v = beginnerRubric(f, med)
	case intent.Event:
		v = eventRubric(f)
	default:
		v = generalRubric(f)
	}
	return math.Min(score.MaxContext, v)
}

func quickRubric(f feature.Features, med MedianTable) float64 {
	var v float64

	prep := float64(f.PrepOrTotal().Or(int(med.PrepMinutes)))
	switch {
	case prep <= 15:
		v += 10
	case prep <= 30:
		v += 7
	case prep <= 45:
		v += 4
	default:
		v++
	}

	ingr := float64(f.IngredientCount.Or(int(med.IngredientCount)))
	switch {
	case ingr <= 5:
		v += 5
	case ingr <= 8:
		v += 3
	default:
		v++
	}

	steps := float64(f.StepCount.Or(int(med.StepCount)))
	switch {
	case steps <= 4:
		v += 5
	case steps <= 6:
		v += 3
	default:
		v++
	}
	return v
}

func healthRubric(f feature.Features) float64 {
	var v float64
	if f.MacrosPresent {
		v += 5
		if p, ok := f.ProteinGrams.Get(); ok && p >= 20 {
			v += 3
		}
	}
	v += math.Min(7, 2*float64(len(f.HealthKeywords)))
	if kcal, ok := f.CaloriesPerServing.Get(); ok {
		switch {
		case kcal >= 150 && kcal <= 400:
			v += 5
		case kcal >= 100 && kcal <= 600:
			v += 3
		default:
			v++
		}
	}
	return v
}

func beginnerRubric(f feature.Features, med MedianTable) float64 {
	var v float64
	steps := f.StepCount.Or(int(med.StepCount))
	switch {
	case steps <= 4:
		v += 8
	case steps <= 6:
		v += 5
	case steps <= 8:
		v += 3
	default:
		v++
	}
	v += math.Min(7, 2.5*float64(len(f.BeginnerKeywords)))
	if avg, ok := f.AvgInstructionLength.Get(); ok {
		switch {
		case avg >= 30 && avg <= 80:
			v += 5
		case avg >= 20 && avg <= 120:
			v += 3
		default:
			v++
		}
	}
	return v
}

func eventRubric(f feature.Features) float64 {
	var v float64
	if vis, ok := f.VisualScore.Get(); ok {
		v += 8 * vis
	}
	v += math.Min(7, 2.5*float64(len(f.EventKeywords)))
	if p, ok := f.PopularityScore.Get(); ok {
		v += math.Min(5, 2*p)
	}
	return v
}

func generalRubric(f feature.Features) float64 {
	v := 10 * f.CompletionScore
	if f.IngredientCount.Known() && f.StepCount.Known() {
		v += 5
	}
	if f.CaloriesPerServing.Known() || f.MacrosPresent {
		v += 3
	}
	if vis, ok := f.VisualScore.Get(); ok && vis > 0.5 {
		v += 2
	}
	return v
}
