// Package allergen is the allergen knowledge base: per-allergen surface
// forms and the cue phrases used to disambiguate them in running text.
package allergen

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kailas-cloud/recipegate/internal/domain"
)

// Key identifies an allergen.
type Key string

// Supported allergens.
const (
	Egg       Key = "egg"
	Milk      Key = "milk"
	Wheat     Key = "wheat"
	Peanut    Key = "peanut"
	Buckwheat Key = "buckwheat"
	Shrimp    Key = "shrimp"
	Crab      Key = "crab"
)

// Entry describes one allergen.
type Entry struct {
	Key  Key
	Name string
	// Forms are surface forms that count as an occurrence.
	Forms []string
	// FreeStems are the names that may precede an explicit-free suffix.
	FreeStems []string
	// FalseFriends contain a form but do not denote the allergen.
	FalseFriends []string
	// Aliases are accepted as selection input besides Key.
	Aliases []string

	explicitFree *regexp.Regexp
}

// ExplicitFree matches "<allergen> not used / free / omitted" phrases,
// including lists such as "卵・乳・小麦不使用".
func (e *Entry) ExplicitFree() *regexp.Regexp { return e.explicitFree }

var entries = []*Entry{
	{
		Key:  Egg,
		Name: "卵",
		Forms: []string{
			"卵", "玉子", "たまご", "タマゴ", "鶏卵", "卵黄", "卵白", "全卵", "溶き卵",
			"マヨネーズ", "メレンゲ", "エッグ", "egg", "eggs", "egg yolk", "egg white", "mayonnaise",
		},
		FreeStems:    []string{"卵", "たまご", "タマゴ", "玉子", "鶏卵", "エッグ", "egg", "eggs"},
		FalseFriends: []string{"eggplant", "eggless", "veggie", "reggiano"},
		Aliases:      []string{"卵", "たまご", "eggs"},
	},
	{
		Key:  Milk,
		Name: "乳",
		Forms: []string{
			"乳", "牛乳", "ミルク", "乳製品", "生乳", "脱脂粉乳", "練乳", "乳清", "ホエイ", "カゼイン",
			"バター", "チーズ", "生クリーム", "クリーム", "ヨーグルト",
			"milk", "butter", "cheese", "cream", "yogurt", "yoghurt", "whey", "casein", "dairy",
		},
		FreeStems: []string{"乳", "牛乳", "乳製品", "乳成分", "ミルク", "milk", "dairy", "lactose"},
		FalseFriends: []string{
			"豆乳", "乳化", "乳酸", "ソイミルク", "ココナッツミルク", "アーモンドミルク", "オーツミルク",
			"ライスミルク", "ピーナッツバター", "カカオバター", "ココアバター", "ココナッツクリーム",
			"soy milk", "almond milk", "oat milk", "coconut milk", "rice milk",
			"peanut butter", "cocoa butter", "coconut cream", "cream of tartar",
			"butternut", "butterfl", "cheesecloth",
		},
		Aliases: []string{"乳", "牛乳", "dairy"},
	},
	{
		Key:  Wheat,
		Name: "小麦",
		Forms: []string{
			"小麦", "小麦粉", "薄力粉", "強力粉", "中力粉", "全粒粉", "パン粉", "グルテン", "麩",
			"wheat", "flour", "gluten",
		},
		FreeStems: []string{"小麦", "小麦粉", "グルテン", "wheat", "gluten"},
		FalseFriends: []string{
			"rice flour", "almond flour", "coconut flour", "oat flour", "buckwheat flour", "corn flour",
			"buckwheat", "flourless",
		},
		Aliases: []string{"小麦", "gluten"},
	},
	{
		Key:          Peanut,
		Name:         "落花生",
		Forms:        []string{"落花生", "ピーナッツ", "ピーナツ", "peanut", "peanuts", "groundnut"},
		FreeStems:    []string{"落花生", "ピーナッツ", "peanut", "peanuts"},
		Aliases:      []string{"落花生", "ピーナッツ", "peanuts"},
	},
	{
		Key:          Buckwheat,
		Name:         "そば",
		Forms:        []string{"そば", "蕎麦", "ソバ", "そば粉", "buckwheat", "soba"},
		FreeStems:    []string{"そば", "蕎麦", "ソバ", "buckwheat"},
		FalseFriends: []string{"焼きそば", "焼そば"},
		Aliases:      []string{"そば", "蕎麦", "soba"},
	},
	{
		Key:       Shrimp,
		Name:      "えび",
		Forms:     []string{"えび", "エビ", "海老", "桜えび", "shrimp", "shrimps", "prawn", "prawns"},
		FreeStems: []string{"えび", "エビ", "海老", "shrimp"},
		Aliases:   []string{"えび", "エビ", "海老", "prawn"},
	},
	{
		Key:          Crab,
		Name:         "かに",
		Forms:        []string{"カニ", "蟹", "カニカマ", "crab", "crabs"},
		FreeStems:    []string{"カニ", "蟹", "crab"},
		FalseFriends: []string{"crabapple", "crab apple"},
		Aliases:      []string{"かに", "カニ", "蟹"},
	},
}

// Explicit-free suffixes and prefixes, figurative, substitution, trace and
// generic negation cues. All are stored normalized.
var (
	freeSuffixes = []string{
		"不使用", "未使用", "なし", "無し", "抜き", "ぬき", "フリー", "ゼロ",
		"使用していません", "使っていません", "含まれていません", "含まない",
		"-free", "free", "not used", "omitted",
	}
	freePrefixes = []string{"free of", "free from", "made without", "contains no"}

	// FigurativeCues mark flavor analogs ("バター風味").
	FigurativeCues = normalizeAll([]string{
		"風味", "フレーバー", "テイスト", "のような", "みたいな", "っぽい",
		"flavor", "flavour", "flavored", "-style", "-like",
	})
	// SubstitutionCues mark substitute ingredients.
	SubstitutionCues = normalizeAll([]string{
		"代わり", "かわり", "代用", "代替", "置き換え", "使わず", "使わない", "植物性",
		"豆乳", "米粉", "オートミルク", "アーモンドミルク", "ヴィーガン", "ビーガン",
		"instead of", "substitute", "replacement", "alternative", "vegan", "plant-based", "dairy-free",
	})
	// TraceCues mark trace amounts and shared-line contamination.
	TraceCues = normalizeAll([]string{
		"微量", "コンタミ", "製造ライン", "同一工場", "同じ工場", "may contain", "traces of", "trace",
	})
	// NegationCues are generic negation words without an explicit-free pattern.
	NegationCues = normalizeAll([]string{
		"ない", "なし", "無し", "不使用", "抜き", "除去", "控え",
		"no", "not", "without", "free", "none",
	})
)

var (
	byKey   = make(map[Key]*Entry, len(entries))
	byAlias = make(map[string]Key)
)

func init() {
	var allStems []string
	for _, e := range entries {
		e.Forms = normalizeAll(e.Forms)
		e.FreeStems = normalizeAll(e.FreeStems)
		e.FalseFriends = normalizeAll(e.FalseFriends)
		allStems = append(allStems, e.FreeStems...)
	}
	anyStem := alternation(allStems)
	suffixes := alternation(normalizeAll(freeSuffixes))
	prefixes := alternation(normalizeAll(freePrefixes))

	for _, e := range entries {
		own := alternation(e.FreeStems)
		pattern := fmt.Sprintf(
			`(?:%s)(?:\s*(?:・|、|,|/|&|と|and)\s*(?:%s))*\s*(?:%s)|(?:%s)\s+(?:(?:%s)\s*(?:,|&|and|or)\s*)*(?:%s)`,
			own, anyStem, suffixes, prefixes, anyStem, own,
		)
		e.explicitFree = regexp.MustCompile(pattern)

		byKey[e.Key] = e
		byAlias[string(e.Key)] = e.Key
		for _, a := range e.Aliases {
			byAlias[Normalize(a)] = e.Key
		}
	}
}

// Lookup returns the entry for k.
func Lookup(k Key) (*Entry, bool) {
	e, ok := byKey[k]
	return e, ok
}

// Keys returns all known allergen keys in table order.
func Keys() []Key {
	out := make([]Key, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

// Parse resolves a key or alias ("卵", "dairy") to a Key.
func Parse(s string) (Key, error) {
	if k, ok := byAlias[Normalize(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%q: %w", s, domain.ErrUnknownAllergen)
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Normalize(s)
	}
	return out
}

// alternation builds a regexp alternation, longest first so that
// "小麦粉" wins over "小麦".
func alternation(words []string) string {
	uniq := make(map[string]struct{}, len(words))
	sorted := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := uniq[w]; ok || w == "" {
			continue
		}
		uniq[w] = struct{}{}
		sorted = append(sorted, w)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	quoted := make([]string, len(sorted))
	for i, w := range sorted {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}
