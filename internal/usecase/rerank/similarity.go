package rerank

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

// Similarity builds a symmetric pairwise similarity matrix over texts.
// Values are in [0,1]; the diagonal is 1.
type Similarity interface {
	Similarities(ctx context.Context, texts []string) ([][]float64, error)
}

// TFIDF is cosine similarity over TF-IDF vectors of character bigrams and
// word unigrams. Character bigrams keep unsegmented CJK text comparable.
type TFIDF struct{}

// Similarities never fails.
func (TFIDF) Similarities(_ context.Context, texts []string) ([][]float64, error) {
	vecs := tfidfVectors(texts)
	n := len(texts)
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := dot(vecs[i], vecs[j])
			out[i][j], out[j][i] = s, s
		}
	}
	return out, nil
}

// terms returns the char bigrams and word unigrams of text.
func terms(text string) []string {
	norm := allergen.Normalize(text)
	var out []string
	for _, word := range strings.FieldsFunc(norm, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	}) {
		out = append(out, "w:"+word)
		rs := []rune(word)
		for i := 0; i+1 < len(rs); i++ {
			out = append(out, "c:"+string(rs[i:i+2]))
		}
	}
	return out
}

// sparseVec is a term-weight vector with ascending vocabulary indices.
// Fixed index order keeps float sums bit-identical between runs.
type sparseVec struct {
	idx []int
	w   []float64
}

// tfidfVectors returns L2-normalized vectors with smoothed idf
// ln((1+n)/(1+df)) + 1.
func tfidfVectors(texts []string) []sparseVec {
	counts := make([]map[string]float64, len(texts))
	df := make(map[string]int)
	for i, t := range texts {
		tf := make(map[string]float64)
		for _, term := range terms(t) {
			tf[term]++
		}
		for term := range tf {
			df[term]++
		}
		counts[i] = tf
	}

	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	sort.Strings(vocab)
	index := make(map[string]int, len(vocab))
	for i, term := range vocab {
		index[term] = i
	}

	n := float64(len(texts))
	out := make([]sparseVec, len(texts))
	for i, tf := range counts {
		v := sparseVec{idx: make([]int, 0, len(tf)), w: make([]float64, 0, len(tf))}
		for term := range tf {
			v.idx = append(v.idx, index[term])
		}
		sort.Ints(v.idx)
		var norm float64
		for _, k := range v.idx {
			term := vocab[k]
			w := tf[term] * (math.Log((1+n)/(1+float64(df[term]))) + 1)
			v.w = append(v.w, w)
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for k := range v.w {
				v.w[k] /= norm
			}
		}
		out[i] = v
	}
	return out
}

func dot(a, b sparseVec) float64 {
	var s float64
	for i, j := 0, 0; i < len(a.idx) && j < len(b.idx); {
		switch {
		case a.idx[i] == b.idx[j]:
			s += a.w[i] * b.w[j]
			i++
			j++
		case a.idx[i] < b.idx[j]:
			i++
		default:
			j++
		}
	}
	return math.Min(1, s)
}

// Fallback serves Primary and switches to Secondary for the request when
// Primary fails.
type Fallback struct {
	Primary   Similarity
	Secondary Similarity
	Logger    *zap.Logger
}

// NewFallback wraps primary with a TF-IDF fallback.
func NewFallback(primary Similarity, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{Primary: primary, Secondary: TFIDF{}, Logger: logger}
}

// Similarities implements Similarity.
func (f *Fallback) Similarities(ctx context.Context, texts []string) ([][]float64, error) {
	m, err := f.Primary.Similarities(ctx, texts)
	if err == nil && len(m) == len(texts) {
		return m, nil
	}
	metrics.SimilarityFallbackTotal.Inc()
	f.Logger.Warn("Similarity backend failed, using TF-IDF",
		zap.Int("texts", len(texts)),
		zap.Error(err),
	)
	return f.Secondary.Similarities(ctx, texts)
}
