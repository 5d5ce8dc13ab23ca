package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/domain/allergen"
	"github.com/kailas-cloud/recipegate/internal/domain/intent"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
	chiTransport "github.com/kailas-cloud/recipegate/internal/transport/chi"
	"github.com/kailas-cloud/recipegate/internal/transport/cse"
	"github.com/kailas-cloud/recipegate/internal/transport/fixture"
	"github.com/kailas-cloud/recipegate/internal/usecase/extract"
	policyuc "github.com/kailas-cloud/recipegate/internal/usecase/policy"
	"github.com/kailas-cloud/recipegate/internal/usecase/rerank"
	retrievaluc "github.com/kailas-cloud/recipegate/internal/usecase/retrieval"
	"github.com/kailas-cloud/recipegate/internal/usecase/safety"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
)

// Environment fallbacks for --cse-key and --cse-engine.
const (
	envCSEKey    = "RECIPEGATE_CSE_API_KEY"
	envCSEEngine = "RECIPEGATE_CSE_ENGINE_ID"
)

type searchOptions struct {
	query     string
	allergens []string
	context   string
	target    int
	fixture   string
	useCSE    bool
	cseKey    string
	cseEngine string
	lambda    float64
	timeout   time.Duration
}

func newSearchCmd(root *rootOptions) *cobra.Command {
	o := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the ranked results as JSON",
		Example: `  recipegatectl search -q パンケーキ -a egg --context quick --fixture testdata/search_fixture.yaml
  recipegatectl search -q "gluten free bread" -a wheat,milk --cse`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := root.logger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()

			resp, err := runSearch(ctx, o, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(chiTransport.SearchResponseFromDomain(resp))
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.query, "query", "q", "", "search query")
	f.StringSliceVarP(&o.allergens, "allergen", "a", nil, "allergen to exclude (repeatable or comma-separated)")
	f.StringVar(&o.context, "context", "", "usage context: quick, healthy, beginner, special-occasion")
	f.IntVar(&o.target, "target", 10, "number of results")
	f.StringVar(&o.fixture, "fixture", "", "serve search results from a fixture file")
	f.BoolVar(&o.useCSE, "cse", false, "search with Google Custom Search")
	f.StringVar(&o.cseKey, "cse-key", "", "Custom Search API key (env "+envCSEKey+")")
	f.StringVar(&o.cseEngine, "cse-engine", "", "Custom Search engine id (env "+envCSEEngine+")")
	f.Float64Var(&o.lambda, "lambda", rerank.DefaultLambda, "diversity tradeoff (0.5-0.9)")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall deadline")

	_ = cmd.MarkFlagRequired("query")
	cmd.MarkFlagsMutuallyExclusive("fixture", "cse")
	cmd.MarkFlagsOneRequired("fixture", "cse")
	return cmd
}

func runSearch(ctx context.Context, o *searchOptions, logger *zap.Logger) (retrievaluc.Response, error) {
	sel, err := allergen.NewSelection(o.allergens)
	if err != nil {
		return retrievaluc.Response{}, err
	}
	kind, err := intent.Parse(o.context)
	if err != nil {
		return retrievaluc.Response{}, err
	}
	if o.target <= 0 {
		return retrievaluc.Response{}, errors.New("--target must be positive")
	}

	searcher, err := o.searcher(logger)
	if err != nil {
		return retrievaluc.Response{}, err
	}

	extractor := extract.New()
	svc := retrievaluc.New(retrievaluc.Deps{
		Search:    searcher,
		Policies:  policyuc.New(dompolicy.Defaults(), nil, nil, logger),
		Safety:    safety.NewGate(),
		Extractor: extractor,
		Scorer: scoring.NewScorer(
			extractor,
			scoring.NewGate(scoring.DefaultGateThresholds()),
			scoring.NewMedians(scoring.DefaultMedianTable()),
		),
		Reranker: rerank.New(rerank.TFIDF{}, o.lambda, logger),
	}, retrievaluc.DefaultOptions(), logger)

	resp, err := svc.Search(ctx, retrievaluc.Request{
		Query:     o.query,
		Allergens: sel,
		Context:   kind,
		Target:    o.target,
	})
	if err != nil {
		return retrievaluc.Response{}, fmt.Errorf("search: %w", err)
	}
	return resp, nil
}

func (o *searchOptions) searcher(logger *zap.Logger) (retrievaluc.ExternalSearch, error) {
	if o.fixture != "" {
		fx, err := fixture.Load(o.fixture)
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		return fx, nil
	}

	key := firstNonEmpty(o.cseKey, os.Getenv(envCSEKey))
	engine := firstNonEmpty(o.cseEngine, os.Getenv(envCSEEngine))
	return cse.NewClient(&cse.Config{
		APIKey:   key,
		EngineID: engine,
		Timeout:  10 * time.Second,
		Logger:   logger,
	}), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
