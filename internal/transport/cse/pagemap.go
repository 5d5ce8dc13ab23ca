package cse

import (
	"encoding/json"

	"github.com/kailas-cloud/recipegate/internal/domain/candidate"
)

// pageMapRecipeKeys maps the provider's lowercased pagemap recipe fields to
// schema.org property names.
var pageMapRecipeKeys = map[string]string{
	"name":               "name",
	"description":        "description",
	"image":              "image",
	"preptime":           "prepTime",
	"cooktime":           "cookTime",
	"totaltime":          "totalTime",
	"recipeyield":        "recipeYield",
	"recipeingredient":   "recipeIngredient",
	"ingredients":        "recipeIngredient",
	"recipeinstructions": "recipeInstructions",
	"recipecategory":     "recipeCategory",
	"recipecuisine":      "recipeCuisine",
	"keywords":           "keywords",
}

// markupFromPageMap rebuilds a JSON-LD Recipe node from pagemap "recipe"
// entries. Repeated entries for a list property are collected in order.
func markupFromPageMap(pm map[string][]map[string]any) candidate.Markup {
	recipes := pm["recipe"]
	if len(recipes) == 0 {
		return candidate.Markup{}
	}

	node := map[string]any{"@context": "https://schema.org", "@type": "Recipe"}
	var ingredients, instructions []any
	for _, r := range recipes {
		for k, v := range r {
			prop, ok := pageMapRecipeKeys[k]
			if !ok {
				continue
			}
			switch prop {
			case "recipeIngredient":
				ingredients = append(ingredients, v)
			case "recipeInstructions":
				instructions = append(instructions, v)
			default:
				if _, seen := node[prop]; !seen {
					node[prop] = v
				}
			}
		}
	}
	if len(ingredients) > 0 {
		node["recipeIngredient"] = ingredients
	}
	if len(instructions) > 0 {
		node["recipeInstructions"] = instructions
	}
	if rating := aggregateRating(pm); rating != nil {
		node["aggregateRating"] = rating
	}

	data, err := json.Marshal(node)
	if err != nil {
		return candidate.Markup{}
	}
	return candidate.Markup{JSONLD: string(data)}
}

func aggregateRating(pm map[string][]map[string]any) map[string]any {
	for _, r := range pm["aggregaterating"] {
		value, ok := r["ratingvalue"]
		if !ok {
			continue
		}
		out := map[string]any{"@type": "AggregateRating", "ratingValue": value}
		if c, ok := r["reviewcount"]; ok {
			out["reviewCount"] = c
		} else if c, ok := r["ratingcount"]; ok {
			out["ratingCount"] = c
		}
		return out
	}
	return nil
}
