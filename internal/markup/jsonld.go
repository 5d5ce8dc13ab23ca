// Package markup parses the raw markup tiers attached to candidates:
// JSON-LD, microdata and plain HTML.
package markup

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Node is one decoded JSON-LD object.
type Node map[string]any

// RecipeNodes decodes raw JSON-LD and returns every object typed Recipe,
// looking through top-level arrays and @graph containers. raw may be bare
// JSON or HTML containing ld+json script tags. Malformed input yields nil.
func RecipeNodes(raw string) []Node {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []Node
	for _, blob := range jsonBlobs(raw) {
		var v any
		if err := json.Unmarshal([]byte(blob), &v); err != nil {
			continue
		}
		collectRecipes(v, &out)
	}
	return out
}

func jsonBlobs(raw string) []string {
	if raw[0] == '{' || raw[0] == '[' {
		return []string{raw}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}
	var blobs []string
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			blobs = append(blobs, t)
		}
	})
	return blobs
}

func collectRecipes(v any, out *[]Node) {
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			collectRecipes(item, out)
		}
	case map[string]any:
		if isRecipe(t["@type"]) {
			*out = append(*out, Node(t))
		}
		if g, ok := t["@graph"]; ok {
			collectRecipes(g, out)
		}
	}
}

func isRecipe(typ any) bool {
	switch t := typ.(type) {
	case string:
		return t == "Recipe"
	case []any:
		for _, x := range t {
			if s, ok := x.(string); ok && s == "Recipe" {
				return true
			}
		}
	}
	return false
}

// String returns the first string value under key, unwrapping
// single-element arrays and {"@value": ...} objects.
func (n Node) String(key string) string {
	return firstString(n[key])
}

// Strings returns every string under key. HowToStep / HowToSection objects
// contribute their "text" (or "name") fields.
func (n Node) Strings(key string) []string {
	var out []string
	collectStrings(n[key], &out)
	return out
}

// Object returns the nested object under key, if any.
func (n Node) Object(key string) Node {
	switch t := n[key].(type) {
	case map[string]any:
		return Node(t)
	case []any:
		for _, x := range t {
			if m, ok := x.(map[string]any); ok {
				return Node(m)
			}
		}
	}
	return nil
}

// Text concatenates every textual field that may mention ingredients.
func (n Node) Text() string {
	var parts []string
	for _, k := range []string{"name", "description", "recipeIngredient", "ingredients",
		"recipeInstructions", "keywords", "recipeCategory", "recipeCuisine"} {
		parts = append(parts, n.Strings(k)...)
	}
	return strings.Join(parts, "\n")
}

func firstString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		for _, x := range t {
			if s := firstString(x); s != "" {
				return s
			}
		}
	case map[string]any:
		if s := firstString(t["@value"]); s != "" {
			return s
		}
		if s := firstString(t["url"]); s != "" {
			return s
		}
	}
	return ""
}

func collectStrings(v any, out *[]string) {
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			*out = append(*out, s)
		}
	case []any:
		for _, x := range t {
			collectStrings(x, out)
		}
	case map[string]any:
		if items, ok := t["itemListElement"]; ok {
			collectStrings(items, out)
			return
		}
		if txt, ok := t["text"]; ok {
			collectStrings(txt, out)
			return
		}
		collectStrings(t["name"], out)
	}
}
