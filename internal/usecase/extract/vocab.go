package extract

import "github.com/kailas-cloud/recipegate/internal/domain/allergen"

// Keyword vocabularies per context. Stored normalized.
var (
	timeVocab = normalized(
		"時短", "手早", "すぐできる", "レンジ", "ワンパン", "作り置き", "5分", "10分", "15分",
		"quick", "fast", "speedy", "one-pot", "one pan", "30 minutes",
	)
	healthVocab = normalized(
		"高たんぱく", "高タンパク", "低糖質", "食物繊維", "低カロリー", "ヘルシー", "栄養", "ビタミン",
		"ミネラル", "低脂肪", "無添加", "オーガニック", "グルテンフリー",
		"high protein", "low carb", "fiber", "healthy", "nutrition",
	)
	beginnerVocab = normalized(
		"簡単", "失敗しない", "初心者", "丁寧", "ポイント", "コツ", "基本", "混ぜるだけ",
		"わかりやすい", "詳しく", "写真付き", "動画", "解説",
		"easy", "simple", "beginner", "basic", "step by step",
	)
	eventVocab = normalized(
		"映え", "華やか", "パーティー", "パーティ", "誕生日", "お祝い", "記念日", "特別", "おもてなし",
		"豪華", "クリスマス", "デコレーション",
		"festive", "party", "celebration", "special",
	)
)

func normalized(words ...string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = allergen.Normalize(w)
	}
	return out
}

// matchVocab returns every vocabulary word found in text, in vocabulary order.
func matchVocab(text string, vocab []string) []string {
	norm := allergen.Normalize(text)
	var out []string
	for _, w := range vocab {
		if len(allergen.IndexAll(norm, w)) > 0 {
			out = append(out, w)
		}
	}
	return out
}

// keywordSet holds the vocabulary matches per context.
type keywordSet struct {
	time, health, beginner, event []string
}

func keywords(text string) keywordSet {
	return keywordSet{
		time:     matchVocab(text, timeVocab),
		health:   matchVocab(text, healthVocab),
		beginner: matchVocab(text, beginnerVocab),
		event:    matchVocab(text, eventVocab),
	}
}
