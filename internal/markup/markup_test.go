package markup

import (
	"strings"
	"testing"
)

const recipeJSONLD = `{
  "@context": "https://schema.org",
  "@graph": [
    {"@type": "WebPage", "name": "page"},
    {
      "@type": ["Recipe"],
      "name": "米粉パンケーキ",
      "totalTime": "PT15M",
      "recipeIngredient": ["米粉 100g", "豆乳 120ml"],
      "recipeInstructions": [
        {"@type": "HowToStep", "text": "混ぜる"},
        {"@type": "HowToSection", "itemListElement": [{"@type": "HowToStep", "text": "焼く"}]}
      ],
      "nutrition": {"@type": "NutritionInformation", "calories": "250 kcal"},
      "aggregateRating": {"ratingValue": 4.5, "reviewCount": 120}
    }
  ]
}`

func TestRecipeNodes_Graph(t *testing.T) {
	nodes := RecipeNodes(recipeJSONLD)
	if len(nodes) != 1 {
		t.Fatalf("expected 1 recipe node, got %d", len(nodes))
	}
	n := nodes[0]
	if n.String("name") != "米粉パンケーキ" {
		t.Errorf("name: got %q", n.String("name"))
	}
	steps := n.Strings("recipeInstructions")
	if len(steps) != 2 || steps[1] != "焼く" {
		t.Errorf("instructions: got %v", steps)
	}
	if got := n.Object("nutrition").String("calories"); got != "250 kcal" {
		t.Errorf("calories: got %q", got)
	}
	if got := n.Object("aggregateRating").String("ratingValue"); got != "4.5" {
		t.Errorf("ratingValue: got %q", got)
	}
}

func TestRecipeNodes_ScriptTags(t *testing.T) {
	raw := `<script type="application/ld+json">{"@type":"Recipe","name":"a"}</script>
<script type="application/ld+json">[{"@type":"Recipe","name":"b"}]</script>`
	nodes := RecipeNodes(raw)
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
}

func TestRecipeNodes_Malformed(t *testing.T) {
	if nodes := RecipeNodes(`{"@type": "Recipe",`); nodes != nil {
		t.Errorf("expected nil for malformed input, got %v", nodes)
	}
}

func TestParseMicrodata(t *testing.T) {
	raw := `<div itemscope itemtype="https://schema.org/Recipe">
  <h1 itemprop="name">簡単オムレツ</h1>
  <meta itemprop="prepTime" content="PT10M">
  <span itemprop="recipeIngredient">卵 2個</span>
  <span itemprop="recipeIngredient">塩 少々</span>
  <div itemprop="nutrition" itemscope><span itemprop="calories">180 kcal</span></div>
</div>`
	md := ParseMicrodata(raw)
	if md.First("prepTime") != "PT10M" {
		t.Errorf("prepTime: got %q", md.First("prepTime"))
	}
	if md.Count("recipeIngredient") != 2 {
		t.Errorf("ingredients: got %d", md.Count("recipeIngredient"))
	}
	if md.First("calories") != "180 kcal" {
		t.Errorf("calories: got %q", md.First("calories"))
	}
}

func TestParsePage(t *testing.T) {
	raw := `<html><head><script>var butter = 1;</script></head><body>
<p>材料 5個</p><ul><li>混ぜる</li><li>焼く</li></ul><img src="https://images.unsplash.com/x.jpg"></body></html>`
	p := ParsePage(raw)
	if p.ListItems != 2 {
		t.Errorf("list items: got %d", p.ListItems)
	}
	if len(p.Images) != 1 {
		t.Errorf("images: got %v", p.Images)
	}
	if p.Text == "" || strings.Contains(p.Text, "butter") {
		t.Errorf("visible text must exclude scripts, got %q", p.Text)
	}
}
