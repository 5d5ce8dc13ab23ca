package embedding

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/recipegate/internal/domain"
)

// Similarity computes pairwise cosine similarity from batch embeddings.
// It satisfies rerank.Similarity.
type Similarity struct {
	embedder domain.BatchEmbedder
}

// NewSimilarity creates an embedding-backed similarity provider.
func NewSimilarity(embedder domain.BatchEmbedder) *Similarity {
	return &Similarity{embedder: embedder}
}

// Similarities returns a symmetric matrix with a unit diagonal.
// Negative cosine values are clamped to 0.
func (s *Similarity) Similarities(ctx context.Context, texts []string) ([][]float64, error) {
	n := len(texts)
	if n == 0 {
		return nil, nil
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("similarity embed: %w", err)
	}
	if len(res.Embeddings) != n {
		return nil, fmt.Errorf("got %d embeddings for %d texts: %w",
			len(res.Embeddings), n, domain.ErrEmbeddingProvider)
	}

	norms := make([]float64, n)
	for i, v := range res.Embeddings {
		norms[i] = norm(v)
	}

	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
		out[i][i] = 1
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := cosine(res.Embeddings[i], res.Embeddings[j], norms[i], norms[j])
			out[i][j], out[j][i] = c, c
		}
	}
	return out, nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 || len(a) != len(b) {
		return 0
	}
	var d float64
	for i := range a {
		d += float64(a[i]) * float64(b[i])
	}
	return math.Max(0, math.Min(1, d/(na*nb)))
}
