package shaping

import (
	"regexp"
	"strings"
)

// Indicator weights.
const (
	weightRecipeTerm  = 1.0
	weightMethod      = 0.8
	weightIngredients = 0.7
	weightSteps       = 0.6
	weightDuration    = 0.5
	indicatorCount    = 5
	urlPatternBonus   = 0.1
)

var (
	recipeTerms     = []string{"レシピ", "recipe", "作り方", "料理法", "cooking", "how to make"}
	cookingMethods  = []string{"焼く", "煮る", "炒める", "蒸す", "揚げる", "茹でる", "炊く", "混ぜる"}
	stepWords       = []string{"手順", "工程", "ステップ", "step", "まず", "次に", "最後に"}
	urlPatterns     = []string{"recipe", "レシピ", "cooking", "料理", "作り方"}
	quantityPattern = regexp.MustCompile(`\d+\s*(?:g|ml|個|本|枚|杯)`)
	durationPattern = regexp.MustCompile(`\d+\s*(?:分|時間|minutes|hours)`)
)

// RecipeConfidence estimates how likely a search hit is a recipe, in [0,1].
// It averages keyword, quantity, step-marker and duration indicators over
// title and snippet and adds a small bonus per recipe-like URL pattern.
func RecipeConfidence(title, snippet, rawURL string) float64 {
	text := strings.ToLower(title + " " + snippet)

	var sum float64
	if hasAny(text, recipeTerms) {
		sum += weightRecipeTerm
	}
	if hasAny(text, cookingMethods) {
		sum += weightMethod
	}
	if quantityPattern.MatchString(text) {
		sum += weightIngredients
	}
	if hasAny(text, stepWords) {
		sum += weightSteps
	}
	if durationPattern.MatchString(text) {
		sum += weightDuration
	}
	conf := sum / indicatorCount

	u := strings.ToLower(rawURL)
	for _, p := range urlPatterns {
		if strings.Contains(u, p) {
			conf += urlPatternBonus
		}
	}
	if conf > 1 {
		return 1
	}
	return conf
}

func hasAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}
