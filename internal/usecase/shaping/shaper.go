// Package shaping rewrites user queries per retrieval pass.
package shaping

import (
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain/retrieval"
)

const (
	recipeBias  = " (レシピ OR recipe)"
	relaxedBias = " (レシピ OR recipe OR cooking OR 料理)"
	urlHints    = " (inurl:recipe OR inurl:レシピ OR inurl:cooking)"
	searchLang  = "lang_ja"
)

var (
	// storefront, delivery, price and review-site vocabulary
	excludeTerms = []string{
		"販売", "通販", "予約", "店舗", "住所", "地図", "価格", "クーポン",
		"UberEats", "出前館", "ぐるなび", "食べログ", "楽天", "Amazon",
		"購入", "注文", "配達", "デリバリー", "宅配", "営業時間", "アクセス",
		"menu", "メニュー表", "価格表", "料金", "送料", "税込", "割引",
	}
	instructionalTerms = []string{
		"作り方", "手順", "how to", "材料", "ingredients", "調理",
		"cooking", "preparation", "instructions", "method",
	}
	negativeSites = []string{"amazon.co.jp", "rakuten.co.jp", "tabelog.com"}
)

// Shaper produces pass-specific queries. Stateless.
type Shaper struct {
	exclusion string
	prefer    string
	sites     string
}

// NewShaper creates a shaper with the built-in vocabularies.
func NewShaper() *Shaper {
	return &Shaper{
		exclusion: " -" + strings.Join(excludeTerms, " -"),
		prefer:    " (" + strings.Join(instructionalTerms, " OR ") + ")",
		sites:     " -site:" + strings.Join(negativeSites, " -site:"),
	}
}

// Shape returns the query for pass. Every pass gets the recipe bias unless
// the query already names a recipe. The whitelist fallback then widens the
// recipe terms and drops the exclusion list.
func (s *Shaper) Shape(query string, pass retrieval.PassKind) string {
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)
	if !strings.Contains(lower, "レシピ") && !strings.Contains(lower, "recipe") {
		q += recipeBias
	}

	switch pass {
	case retrieval.PassWhitelist:
		return q + relaxedBias
	case retrieval.PassPrefer:
		return q + s.prefer + urlHints + s.exclusion
	case retrieval.PassExclude:
		return q + s.exclusion + s.sites
	default:
		return q + s.exclusion
	}
}

// PassParams returns provider parameters for pass. Later passes ask for
// more results.
func (s *Shaper) PassParams(pass retrieval.PassKind) retrieval.Params {
	switch pass {
	case retrieval.PassExclude, retrieval.PassWhitelist:
		return retrieval.Params{Lang: searchLang, Num: 20}
	default:
		return retrieval.Params{Lang: searchLang, Num: 10}
	}
}
