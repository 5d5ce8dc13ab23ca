package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain"
	"github.com/kailas-cloud/recipegate/internal/metrics"
)

// DefaultMaxAPIBatchSize caps the number of texts sent in one API request.
const DefaultMaxAPIBatchSize = 256

// Budget is the token budget contract Batcher charges.
type Budget interface {
	Admit(ctx context.Context, estimate int64) error
	Record(ctx context.Context, tokens int64)
}

// Batcher embeds the candidate texts of one rerank. Syndicated recipes
// often repeat a title and snippet across sites, so each distinct text is
// embedded once and its vector copied to every candidate carrying it.
// Provider request metrics live in transport/openai.
type Batcher struct {
	inner    domain.BatchEmbedder
	model    string
	maxBatch int
	budget   Budget
	logger   *zap.Logger
}

// NewBatcher wraps inner. budget may be nil.
func NewBatcher(inner domain.BatchEmbedder, model string, budget Budget, logger *zap.Logger) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		inner:    inner,
		model:    model,
		maxBatch: DefaultMaxAPIBatchSize,
		budget:   budget,
		logger:   logger,
	}
}

// BatchEmbed admits the batch against the budget, embeds the distinct texts
// and returns one vector per input text in input order.
func (p *Batcher) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	unique, slot := dedupe(texts)

	if p.budget != nil {
		estimate := EstimateTokens(unique)
		if err := p.budget.Admit(ctx, estimate); err != nil {
			p.logger.Warn("Rerank embedding refused by token budget",
				zap.String("model", p.model),
				zap.Int("texts", len(unique)),
				zap.Int64("estimate", estimate),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("admit rerank batch: %w", err)
		}
	}

	res, err := p.embedChunked(ctx, unique)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	if p.budget != nil && res.TotalTokens > 0 {
		p.budget.Record(ctx, int64(res.TotalTokens))
	}

	metrics.RerankEmbedTexts.WithLabelValues(p.model).Observe(float64(len(unique)))
	if dup := len(texts) - len(unique); dup > 0 {
		metrics.RerankEmbedDedupedTotal.WithLabelValues(p.model).Add(float64(dup))
	}

	out := make([][]float32, len(texts))
	for i, s := range slot {
		out[i] = res.Embeddings[s]
	}

	p.logger.Debug("Rerank embeddings ready",
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("texts", len(texts)),
		zap.Int("distinct", len(unique)),
		zap.Int("total_tokens", res.TotalTokens),
	)

	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

func (p *Batcher) embedChunked(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	var out domain.BatchEmbeddingResult

	for offset := 0; offset < len(texts); offset += p.maxBatch {
		end := min(offset+p.maxBatch, len(texts))
		chunk, err := p.inner.BatchEmbed(ctx, texts[offset:end])
		if err != nil {
			p.logger.Error("Rerank embedding request failed",
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", end-offset),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(chunk.Embeddings) != end-offset {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("chunk %d: got %d embeddings for %d texts: %w",
				offset, len(chunk.Embeddings), end-offset, domain.ErrEmbeddingProvider)
		}

		out.Embeddings = append(out.Embeddings, chunk.Embeddings...)
		out.PromptTokens += chunk.PromptTokens
		out.TotalTokens += chunk.TotalTokens
	}

	return out, nil
}

// dedupe returns the distinct texts in first-seen order and, for every
// input position, the index of its text in unique.
func dedupe(texts []string) (unique []string, slot []int) {
	seen := make(map[string]int, len(texts))
	slot = make([]int, len(texts))
	for i, t := range texts {
		j, ok := seen[t]
		if !ok {
			j = len(unique)
			seen[t] = j
			unique = append(unique, t)
		}
		slot[i] = j
	}
	return unique, slot
}
