package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	"github.com/kailas-cloud/recipegate/internal/domain/feature"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	"github.com/kailas-cloud/recipegate/internal/domain/score"
	"github.com/kailas-cloud/recipegate/internal/usecase/extract"
)

// Bonus points awarded by gates.
const (
	bonusTitleKeyword      = 2.0
	bonusCaloriesExcellent = 5.0
	bonusCaloriesGood      = 2.0
)

var (
	beginnerTitleWords = []string{"簡単", "初心者", "失敗しない", "基本", "混ぜるだけ"}
	eventTitleWords    = []string{"映え", "デコレーション", "ホール", "誕生日", "パーティ", "華やか", "クリスマス"}
	healthProxies      = []string{"豆腐", "オートミール", "鶏むね", "ささみ", "ブロッコリー", "キノコ", "こんにゃく", "寒天", "もやし"}
)

// Gate applies per-context pass / soft-fail / hard-fail thresholds.
// Sub-criterion penalties combine by max.
type Gate struct {
	th GateThresholds
}

// NewGate creates a context gate.
func NewGate(th GateThresholds) *Gate {
	return &Gate{th: th}
}

// Evaluate gates features for context k. With no context it always passes.
func (g *Gate) Evaluate(f feature.Features, k intent.Kind, doc candidate.Document) score.GateResult {
	text := doc.Title() + " " + doc.Snippet()
	switch k {
	case intent.Quick:
		return g.quick(f, text)
	case intent.Beginner:
		return g.beginner(f, doc.Title(), text)
	case intent.Healthy:
		return g.healthy(f, text)
	case intent.Event:
		return g.event(f, text)
	default:
		return score.GateResult{Passed: true}
	}
}

// gateState accumulates one gate's verdict.
type gateState struct {
	penalty float64
	bonus   float64
	reasons []string
}

func (s *gateState) fail(penalty float64, reason string) {
	s.penalty = math.Max(s.penalty, penalty)
	s.reasons = append(s.reasons, reason)
}

func (s *gateState) note(reason string) { s.reasons = append(s.reasons, reason) }

func (s *gateState) result(passed bool) score.GateResult {
	return score.GateResult{Passed: passed, Penalty: s.penalty, Bonus: s.bonus, Reasons: s.reasons}
}

// tier grades v against pass/soft limits (lower is better).
func tier(s *gateState, name string, v, pass, soft int) {
	switch {
	case v <= pass:
		s.note(fmt.Sprintf("%s_pass_%d", name, v))
	case v <= soft:
		s.fail(score.PenaltySoft, fmt.Sprintf("%s_soft_fail_%d", name, v))
	default:
		s.fail(score.PenaltyHard, fmt.Sprintf("%s_hard_fail_%d", name, v))
	}
}

func (g *Gate) quick(f feature.Features, text string) score.GateResult {
	var s gateState

	minutes, ok := f.PrepOrTotal().Get()
	if !ok {
		minutes, ok = extract.MinutesInText(text)
	}
	if ok {
		tier(&s, "time", minutes, g.th.QuickMinutesPass, g.th.QuickMinutesSoft)
	} else {
		s.fail(score.PenaltyHard, "time_missing")
	}

	count, ok := f.IngredientCount.Get()
	if !ok {
		count, ok = extract.IngredientsInText(text)
	}
	if ok {
		tier(&s, "ingredients", count, g.th.QuickIngredientsPass, g.th.QuickIngredientsSoft)
	} else {
		s.fail(score.PenaltyHard, "ingredients_missing")
	}
	return s.result(s.penalty == 0)
}

func (g *Gate) beginner(f feature.Features, title, text string) score.GateResult {
	var s gateState

	steps, ok := f.StepCount.Get()
	if !ok {
		steps, ok = extract.StepsInText(text)
	}
	if ok {
		tier(&s, "steps", steps, g.th.BeginnerStepsPass, g.th.BeginnerStepsSoft)
	} else {
		s.fail(score.PenaltyHard, "steps_missing")
	}

	if found := containsAny(title, beginnerTitleWords); len(found) > 0 {
		s.bonus += bonusTitleKeyword
		s.note("title_bonus_" + strings.Join(found, ","))
	}
	return s.result(s.penalty == 0)
}

func (g *Gate) healthy(f feature.Features, text string) score.GateResult {
	var s gateState

	kcal, ok := f.CaloriesPerServing.Get()
	if !ok {
		kcal, ok = extract.CaloriesInText(text)
	}
	switch {
	case ok && kcal <= g.th.HealthCaloriesExcellent:
		s.bonus += bonusCaloriesExcellent
		s.note(fmt.Sprintf("calories_excellent_%.0f", kcal))
	case ok && kcal <= g.th.HealthCaloriesGood:
		s.bonus += bonusCaloriesGood
		s.note(fmt.Sprintf("calories_good_%.0f", kcal))
	case ok && kcal <= g.th.HealthCaloriesSoft:
		s.fail(score.PenaltySoft, fmt.Sprintf("calories_soft_fail_%.0f", kcal))
	case ok:
		s.fail(score.PenaltyHard, fmt.Sprintf("calories_hard_fail_%.0f", kcal))
	default:
		// No calories: any health evidence avoids the hard fail.
		evidence := append(append([]string(nil), f.HealthKeywords...), containsAny(text, healthProxies)...)
		if len(evidence) > 0 {
			s.note("health_indicators_" + strings.Join(evidence, ","))
		} else {
			s.fail(score.PenaltyHard, "calories_missing_no_health_indicators")
		}
	}
	return s.result(s.penalty == 0)
}

func (g *Gate) event(f feature.Features, text string) score.GateResult {
	var s gateState

	visual, ok := f.VisualScore.Get()
	switch {
	case !ok:
		s.fail(score.PenaltySoft, "visual_missing")
	case visual >= g.th.EventVisualPass:
		s.note(fmt.Sprintf("visual_pass_%.1f", visual))
	default:
		s.fail(score.PenaltySoft, fmt.Sprintf("visual_soft_fail_%.1f", visual))
	}

	if found := containsAny(text, eventTitleWords); len(found) > 0 {
		s.bonus += bonusTitleKeyword
		s.note("event_bonus_" + strings.Join(found, ","))
	}
	// soft fails are tolerated for events
	return s.result(s.penalty <= score.PenaltySoft)
}

func containsAny(text string, words []string) []string {
	var out []string
	for _, w := range words {
		if strings.Contains(text, w) {
			out = append(out, w)
		}
	}
	return out
}
