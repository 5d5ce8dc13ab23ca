package safety

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
	domsafety "github.com/kailas-cloud/recipegate/internal/domain/safety"
)

func doc(title, snippet string) candidate.Document {
	return candidate.New("https://example.com/r/1", title, snippet, candidate.Markup{})
}

// filler pushes text outside the ±30 rune window.
var filler = strings.Repeat("。ふわふわに焼き上げます", 5)

func TestEvaluate_EmptySelectionIsNoop(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("バターたっぷりパンケーキ", "卵 2個、牛乳 200ml"), allergen.Selection{})
	if v.Status != domsafety.OK {
		t.Fatalf("expected ok, got %s", v.Status)
	}
	if len(v.Hits) != 0 || len(v.CheckedAllergens) != 0 {
		t.Errorf("expected no hits and no checked allergens, got %+v", v)
	}
}

func TestEvaluate_HardHit(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("基本のパンケーキ", "バター 100g、卵 2個"), allergen.MustSelection(allergen.Egg, allergen.Milk))
	if v.Status != domsafety.NG {
		t.Fatalf("expected ng, got %s (%+v)", v.Status, v.Hits)
	}
	if len(v.HitAllergens) != 2 {
		t.Errorf("expected both allergens hit, got %v", v.HitAllergens)
	}
	if !containsReason(v.ReasonCodes, domsafety.ReasonHitToken) {
		t.Errorf("expected hit_token reason, got %v", v.ReasonCodes)
	}
}

func TestEvaluate_ExplicitFree(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("卵不使用、乳不使用のマーガリンで作るケーキ", ""), allergen.MustSelection(allergen.Egg, allergen.Milk))
	if v.Status != domsafety.OK {
		t.Fatalf("expected ok, got %s (%+v)", v.Status, v.Hits)
	}
	if len(v.Hits) != 2 {
		t.Errorf("explicit-free occurrences are still reported, got %d hits", len(v.Hits))
	}
	for _, h := range v.Hits {
		if h.Status() != domsafety.OK {
			t.Errorf("hit %q: expected ok, got %s", h.MatchedToken, h.Status())
		}
	}
}

func TestEvaluate_ExplicitFreeList(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("卵・乳・小麦不使用のパンケーキ", ""),
		allergen.MustSelection(allergen.Egg, allergen.Milk, allergen.Wheat))
	if v.Status != domsafety.OK {
		t.Fatalf("expected ok, got %s (%+v)", v.Status, v.Hits)
	}
}

func TestEvaluate_Figurative(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("バター風味マーガリンのクッキー", ""), allergen.MustSelection(allergen.Milk))
	if v.Status != domsafety.Ambiguous {
		t.Fatalf("expected ambiguous, got %s", v.Status)
	}
	if !containsReason(v.ReasonCodes, domsafety.ReasonFigurative) {
		t.Errorf("expected figurative reason, got %v", v.ReasonCodes)
	}
}

func TestEvaluate_Substitution(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("牛乳の代わりにオーツで作るスムージー", ""), allergen.MustSelection(allergen.Milk))
	if v.Status != domsafety.Ambiguous {
		t.Fatalf("expected ambiguous, got %s", v.Status)
	}
}

func TestEvaluate_UnqualifiedNegation(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("cake", "recipe without much butter"), allergen.MustSelection(allergen.Milk))
	if v.Status != domsafety.Ambiguous {
		t.Fatalf("expected ambiguous, got %s", v.Status)
	}
	if !containsReason(v.ReasonCodes, domsafety.ReasonNegationNear) {
		t.Errorf("expected negation_near, got %v", v.ReasonCodes)
	}
}

func TestEvaluate_ExplicitFreeIsPerOccurrence(t *testing.T) {
	g := NewGate()
	// explicit-free claim up front, bare butter far outside its window
	v := g.Evaluate(doc("乳不使用パンケーキ", filler+"仕上げにバターをのせます"), allergen.MustSelection(allergen.Milk))
	if v.Status != domsafety.NG {
		t.Fatalf("bare token outside the claim's window must force ng, got %s", v.Status)
	}
	var okHits, ngHits int
	for _, h := range v.Hits {
		switch h.Status() {
		case domsafety.OK:
			okHits++
		case domsafety.NG:
			ngHits++
		}
	}
	if okHits != 1 || ngHits != 1 {
		t.Errorf("expected one ok and one ng hit, got ok=%d ng=%d", okHits, ngHits)
	}
}

func TestEvaluate_NgDominatesAcrossAllergens(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("卵不使用", filler+"小麦粉 200g"), allergen.MustSelection(allergen.Egg, allergen.Wheat))
	if v.Status != domsafety.NG {
		t.Fatalf("expected ng, got %s", v.Status)
	}
	if len(v.HitAllergens) != 1 || v.HitAllergens[0] != allergen.Wheat {
		t.Errorf("expected only wheat hit, got %v", v.HitAllergens)
	}
}

func TestEvaluate_FalseFriends(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("豆乳とピーナッツバターのスムージー", "eggplant curry"),
		allergen.MustSelection(allergen.Milk, allergen.Egg))
	if v.Status != domsafety.OK {
		t.Fatalf("expected ok, got %s (%+v)", v.Status, v.Hits)
	}
	if len(v.Hits) != 0 {
		t.Errorf("expected no hits, got %+v", v.Hits)
	}
}

func TestEvaluate_CompoundWords(t *testing.T) {
	sel := allergen.MustSelection(allergen.Milk, allergen.Wheat, allergen.Egg)
	tests := []struct {
		title string
		want  allergen.Key
	}{
		{"Fluffy buttermilk pancakes", allergen.Milk},
		{"Easy no-bake cheesecake", allergen.Milk},
		{"Creamy tomato pasta", allergen.Milk},
		{"Strawberry milkshake", allergen.Milk},
		{"Wholewheat banana bread", allergen.Wheat},
		{"Homemade eggnog", allergen.Egg},
	}
	g := NewGate()
	for _, tc := range tests {
		t.Run(tc.title, func(t *testing.T) {
			v := g.Evaluate(doc(tc.title, ""), sel)
			if v.Status == domsafety.OK {
				t.Fatalf("expected a non-ok verdict, got ok (%+v)", v.Hits)
			}
			found := false
			for _, k := range v.HitAllergens {
				found = found || k == tc.want
			}
			if !found {
				t.Errorf("expected %s among hit allergens, got %v", tc.want, v.HitAllergens)
			}
		})
	}
}

func TestEvaluate_CompoundFalseFriends(t *testing.T) {
	sel := allergen.MustSelection(allergen.Milk, allergen.Wheat, allergen.Egg)
	for _, title := range []string{
		"Roasted butternut squash soup",
		"Veggie stir fry with eggplants",
		"Buckwheat galette",
		"Flourless chocolate cake",
	} {
		if v := NewGate().Evaluate(doc(title, ""), sel); v.Status != domsafety.OK {
			t.Errorf("%q: expected ok, got %s (%+v)", title, v.Status, v.Hits)
		}
	}
}

func TestEvaluate_LongestFormWins(t *testing.T) {
	g := NewGate()
	v := g.Evaluate(doc("小麦粉 100g", ""), allergen.MustSelection(allergen.Wheat))
	if len(v.Hits) != 1 || v.Hits[0].MatchedToken != "小麦粉" {
		t.Fatalf("expected a single 小麦粉 hit, got %+v", v.Hits)
	}
	if v.Hits[0].CharRange != (domsafety.Range{Start: 0, End: 3}) {
		t.Errorf("unexpected range %+v", v.Hits[0].CharRange)
	}
}

func TestEvaluate_ScansAllTiers(t *testing.T) {
	d := candidate.New("https://example.com/r/2", "パンケーキ", "ふわふわ", candidate.Markup{
		JSONLD:    `{"@type":"Recipe","recipeIngredient":["卵 1個"]}`,
		Microdata: `<div itemscope itemtype="https://schema.org/Recipe"><span itemprop="recipeIngredient">牛乳 100ml</span></div>`,
		HTML:      `<body><p>バター 10g</p></body>`,
	})
	v := NewGate().Evaluate(d, allergen.MustSelection(allergen.Egg, allergen.Milk))
	sources := map[domsafety.Source]bool{}
	for _, h := range v.Hits {
		sources[h.Source] = true
	}
	for _, s := range []domsafety.Source{domsafety.Structured, domsafety.SemiStructured, domsafety.Heuristic} {
		if !sources[s] {
			t.Errorf("expected a hit from %s, got %+v", s, v.Hits)
		}
	}
	if v.Status != domsafety.NG {
		t.Errorf("expected ng, got %s", v.Status)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	g := NewGate()
	d := doc("バター風味", "卵 1個 と 牛乳")
	sel := allergen.MustSelection(allergen.Milk, allergen.Egg)
	a := g.Evaluate(d, sel)
	b := g.Evaluate(d, sel)
	if a.Status != b.Status || len(a.Hits) != len(b.Hits) {
		t.Fatal("verdict differs between runs")
	}
	for i := range a.Hits {
		if a.Hits[i].CharRange != b.Hits[i].CharRange || a.Hits[i].Allergen != b.Hits[i].Allergen {
			t.Fatalf("hit %d differs", i)
		}
	}
}

func containsReason(codes []string, want string) bool {
	for _, c := range codes {
		if c == want {
			return true
		}
	}
	return false
}
