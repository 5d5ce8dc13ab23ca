package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/config"
	"github.com/kailas-cloud/recipegate/internal/db"
	"github.com/kailas-cloud/recipegate/internal/domain"
	budgetrepo "github.com/kailas-cloud/recipegate/internal/repository/budget"
	openaiEmb "github.com/kailas-cloud/recipegate/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/recipegate/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/recipegate/internal/usecase/health"
	"github.com/kailas-cloud/recipegate/internal/usecase/rerank"
)

// buildSimilarity returns TF-IDF, or the embedding chain guarded by a TF-IDF fallback:
// OpenAI -> Instruction -> Batcher(dedupe, token budget) -> cosine -> Fallback.
func buildSimilarity(
	ctx context.Context,
	cfg config.Config,
	store db.Store,
	components map[string]healthuc.Checker,
	logger *zap.Logger,
) rerank.Similarity {
	if cfg.Rerank.Similarity != config.SimilarityEmbedding {
		return rerank.TFIDF{}
	}
	embCfg := cfg.Rerank.Embedding

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     embCfg.APIKey,
		BaseURL:    embCfg.BaseURL,
		Model:      embCfg.Model,
		Dimensions: embCfg.Dimensions,
		Logger:     logger,
	})
	components["embedding"] = base

	var embedder domain.BatchEmbedder = base
	if embCfg.Instruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, embCfg.Instruction)
	}

	// Pass a nil interface, not a typed nil pointer, when no budget is set.
	var budget embeddinguc.Budget
	if b := embCfg.Budget; b.DailyTokenLimit > 0 || b.MonthlyTokenLimit > 0 {
		tb := embeddinguc.NewTokenBudget(
			cfg.Storage.KeyPrefix, embCfg.Model, b.DailyTokenLimit, b.MonthlyTokenLimit,
			embeddinguc.BudgetAction(b.Action), logger,
		)
		if store != nil {
			tb.WithStore(ctx, budgetrepo.New(store, 24*time.Hour))
		}
		budget = tb
	}

	batcher := embeddinguc.NewBatcher(embedder, embCfg.Model, budget, logger)

	logger.Info("Embedding similarity enabled",
		zap.String("model", embCfg.Model),
		zap.Int("dimensions", embCfg.Dimensions),
		zap.Bool("budget", budget != nil),
	)

	return rerank.NewFallback(embeddinguc.NewSimilarity(batcher), logger)
}
