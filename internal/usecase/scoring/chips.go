package scoring

import (
	"fmt"
	"slices"

	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	"github.com/kailas-cloud/recipegate/internal/domain/ranking"
	"github.com/kailas-cloud/recipegate/internal/domain/score"
)

// Chip thresholds.
const (
	chipFastMinutes    = 20
	chipFewIngredients = 6
	chipFewSteps       = 5
	chipHighProtein    = 15.0
	chipLowCalories    = 300.0
	chipGoodVisual     = 0.6
	chipPopular        = 3.0
	chipRichCompletion = 0.7
	chipTrustedSite    = 25.0
	chipClearMinLength = 30.0
	chipClearMaxLength = 80.0
)

var (
	healthChipWords = []string{"高たんぱく", "低糖質", "食物繊維", "低カロリー"}
	eventChipWords  = []string{"映え", "華やか", "パーティー", "おもてなし"}
)

// Chips derives up to four evidence chips. Context chips come first,
// quality chips fill the remainder. Presentation only.
func Chips(f feature.Features, b score.Breakdown, k intent.Kind) []ranking.Chip {
	var out []ranking.Chip
	add := func(text string, kind ranking.ChipKind, tone ranking.Tone) {
		out = append(out, ranking.Chip{Text: text, Kind: kind, Tone: tone})
	}

	switch k {
	case intent.Quick:
		if m, ok := f.PrepOrTotal().Get(); ok {
			add(fmt.Sprintf("%d分", m), ranking.ChipTime, toneIf(m <= chipFastMinutes))
		}
		if n, ok := f.IngredientCount.Get(); ok {
			add(fmt.Sprintf("材料%d個", n), ranking.ChipTime, toneIf(n <= chipFewIngredients))
		}
		if n, ok := f.StepCount.Get(); ok && n <= chipFewSteps {
			add(fmt.Sprintf("手順%dつ", n), ranking.ChipTime, ranking.ToneSuccess)
		}
	case intent.Healthy:
		if f.MacrosPresent {
			add("栄養情報あり", ranking.ChipHealth, ranking.ToneSuccess)
		}
		if p, ok := f.ProteinGrams.Get(); ok && p >= chipHighProtein {
			add("高たんぱく", ranking.ChipHealth, ranking.ToneInfo)
		}
		if kcal, ok := f.CaloriesPerServing.Get(); ok && kcal <= chipLowCalories {
			add("低カロリー", ranking.ChipHealth, ranking.ToneSuccess)
		}
		if w, ok := firstOf(healthChipWords, f.HealthKeywords); ok {
			add(w, ranking.ChipHealth, ranking.ToneInfo)
		}
	case intent.Beginner:
		if n, ok := f.StepCount.Get(); ok && n <= chipFewSteps {
			add(fmt.Sprintf("手順%dつ", n), ranking.ChipBeginner, ranking.ToneSuccess)
		}
		switch {
		case slices.Contains(f.BeginnerKeywords, "簡単"):
			add("簡単", ranking.ChipBeginner, ranking.ToneSuccess)
		case slices.Contains(f.BeginnerKeywords, "初心者"):
			add("初心者向け", ranking.ChipBeginner, ranking.ToneInfo)
		}
		if avg, ok := f.AvgInstructionLength.Get(); ok && avg >= chipClearMinLength && avg <= chipClearMaxLength {
			add("丁寧な説明", ranking.ChipBeginner, ranking.ToneInfo)
		}
	case intent.Event:
		if v, ok := f.VisualScore.Get(); ok {
			if v >= chipGoodVisual {
				add("写真品質 良", ranking.ChipEvent, ranking.ToneAccent)
			} else {
				add("写真品質 可", ranking.ChipEvent, ranking.ToneInfo)
			}
		}
		if w, ok := firstOf(eventChipWords, f.EventKeywords); ok {
			add(w, ranking.ChipEvent, ranking.ToneAccent)
		}
		if p, ok := f.PopularityScore.Get(); ok && p > chipPopular {
			add("人気", ranking.ChipPopularity, ranking.ToneAccent)
		}
	}

	if f.HasSource(feature.SourceJSONLD) {
		add("詳細データ", ranking.ChipQuality, ranking.ToneSuccess)
	}
	if f.CompletionScore >= chipRichCompletion {
		add("情報充実", ranking.ChipQuality, ranking.ToneInfo)
	}
	if b.Trust >= chipTrustedSite {
		add("信頼サイト", ranking.ChipQuality, ranking.ToneSuccess)
	}

	if len(out) > ranking.MaxChips {
		out = out[:ranking.MaxChips]
	}
	return out
}

func toneIf(good bool) ranking.Tone {
	if good {
		return ranking.ToneSuccess
	}
	return ranking.ToneInfo
}

// firstOf returns the first word of priority present in have.
func firstOf(priority, have []string) (string, bool) {
	for _, w := range priority {
		if slices.Contains(have, w) {
			return w, true
		}
	}
	return "", false
}
