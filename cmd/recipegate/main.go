package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recipegate/internal/config"
	"github.com/kailas-cloud/recipegate/internal/db"
	dbRedis "github.com/kailas-cloud/recipegate/internal/db/redis"
	dompolicy "github.com/kailas-cloud/recipegate/internal/domain/policy"
	domretrieval "github.com/kailas-cloud/recipegate/internal/domain/retrieval"
	logpkg "github.com/kailas-cloud/recipegate/internal/logger"
	"github.com/kailas-cloud/recipegate/internal/metrics"
	"github.com/kailas-cloud/recipegate/internal/repository/domainstats"
	"github.com/kailas-cloud/recipegate/internal/repository/policystore"
	"github.com/kailas-cloud/recipegate/internal/repository/searchcache"
	"github.com/kailas-cloud/recipegate/internal/repository/telemetry"
	chiTransport "github.com/kailas-cloud/recipegate/internal/transport/chi"
	"github.com/kailas-cloud/recipegate/internal/transport/cse"
	"github.com/kailas-cloud/recipegate/internal/transport/fixture"
	"github.com/kailas-cloud/recipegate/internal/usecase/extract"
	feedbackuc "github.com/kailas-cloud/recipegate/internal/usecase/feedback"
	healthuc "github.com/kailas-cloud/recipegate/internal/usecase/health"
	policyuc "github.com/kailas-cloud/recipegate/internal/usecase/policy"
	"github.com/kailas-cloud/recipegate/internal/usecase/rerank"
	retrievaluc "github.com/kailas-cloud/recipegate/internal/usecase/retrieval"
	"github.com/kailas-cloud/recipegate/internal/usecase/safety"
	"github.com/kailas-cloud/recipegate/internal/usecase/scoring"
	"github.com/kailas-cloud/recipegate/internal/usecase/shaping"
	"github.com/kailas-cloud/recipegate/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting recipegate API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("search_provider", cfg.Search.Provider),
		zap.String("similarity", cfg.Rerank.Similarity),
	)

	metrics.RegisterHTTPMetrics()
	metrics.RegisterPipelineMetrics()
	metrics.RegisterRerankMetrics()

	ctx := context.Background()

	// Valkey speaks the Redis protocol; both go through rueidis.
	var store db.Store
	switch cfg.Database.Driver {
	case config.DriverRedis, config.DriverValkey:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("db_addrs", cfg.Database.Addrs))
	case config.DriverNone:
		logger.Warn("Running without a database: policy edits are not persisted, no search cache, no domain stats")
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", cfg.Database.Driver))
	}

	// Telemetry sink (SQLite, async)
	sink, err := telemetry.Open(cfg.Telemetry.SQLitePath, cfg.Telemetry.Buffer, metrics.TelemetryDroppedTotal, logger)
	if err != nil {
		logger.Fatal("Failed to open telemetry store", zap.Error(err))
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error("Failed to close telemetry store", zap.Error(err))
		}
	}()

	components := map[string]healthuc.Checker{"telemetry": sink}

	// External search provider
	searcher, err := buildSearcher(cfg, store, components, logger)
	if err != nil {
		logger.Fatal("Failed to create search provider", zap.Error(err))
	}

	// Domain policies: built-in table, config overrides, then stored admin edits.
	// Interfaces stay nil (not typed nil pointers) when there is no database.
	var (
		policyStore policyuc.Store
		policyStats policyuc.StatsReader
		impressions retrievaluc.DomainStats
		counters    feedbackuc.Counters
	)
	if store != nil {
		stats := domainstats.New(store, cfg.Storage.KeyPrefix)
		policyStore = policystore.New(store, cfg.Storage.KeyPrefix, logger)
		policyStats, impressions, counters = stats, stats, stats
	}

	policySvc := policyuc.New(basePolicies(cfg.Policy.Overrides), policyStore, policyStats, logger)
	if err := policySvc.Reload(ctx); err != nil {
		logger.Warn("Failed to load stored domain policies, using configured table", zap.Error(err))
	}

	// Diversity reranker
	sim := buildSimilarity(ctx, cfg, store, components, logger)
	reranker := rerank.New(sim, cfg.Rerank.Lambda, logger)

	extractor := extract.New()
	scorer := scoring.NewScorer(
		extractor,
		scoring.NewGate(gateThresholds(cfg.Gates)),
		scoring.NewMedians(scoring.DefaultMedianTable()),
	)

	retrievalSvc := retrievaluc.New(retrievaluc.Deps{
		Search:    searcher,
		Shaper:    shaping.NewShaper(),
		Policies:  policySvc,
		Safety:    safety.NewGate(),
		Extractor: extractor,
		Scorer:    scorer,
		Reranker:  reranker,
		Sink:      sink,
		Stats:     impressions,
	}, pipelineOptions(cfg.Pipeline), logger)

	feedbackSvc := feedbackuc.New(sink, counters, logger)

	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, components)

	server := chiTransport.NewServer(retrievalSvc, policySvc, feedbackSvc, reranker, healthSvc, logger).
		WithMedianCalibrator(scorer)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: bindErrorHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildSearcher creates the configured provider, wrapped in the Redis
// cache when a store is available and caching is enabled.
func buildSearcher(
	cfg config.Config,
	store db.Store,
	components map[string]healthuc.Checker,
	logger *zap.Logger,
) (retrievaluc.ExternalSearch, error) {
	var searcher retrievaluc.ExternalSearch
	switch cfg.Search.Provider {
	case config.ProviderFixture:
		fx, err := fixture.Load(cfg.Search.FixturePath)
		if err != nil {
			return nil, fmt.Errorf("load fixture: %w", err)
		}
		logger.Info("Using fixture search provider", zap.String("path", cfg.Search.FixturePath))
		searcher = fx
	default:
		client := cse.NewClient(&cse.Config{
			APIKey:   cfg.Search.APIKey,
			EngineID: cfg.Search.EngineID,
			BaseURL:  cfg.Search.BaseURL,
			Timeout:  time.Duration(cfg.Search.TimeoutSec) * time.Second,
			Logger:   logger,
		})
		components["search"] = client
		searcher = client
	}

	if store != nil && cfg.Search.CacheTTLSec > 0 {
		ttl := time.Duration(cfg.Search.CacheTTLSec) * time.Second
		searcher = searchcache.New(searcher, store, cfg.Storage.KeyPrefix, ttl, metrics.SearchCacheTotal, logger)
		logger.Info("Search cache enabled", zap.Duration("ttl", ttl))
	}
	return searcher, nil
}

// basePolicies merges configured overrides over the built-in table.
func basePolicies(overrides []config.PolicyOverride) []dompolicy.Policy {
	extra := make([]dompolicy.Policy, len(overrides))
	for i, o := range overrides {
		extra[i] = dompolicy.Policy{Domain: o.Domain, Kind: dompolicy.Kind(o.Kind), Boost: o.Boost, Reason: o.Reason}
	}
	return dompolicy.Merge(dompolicy.Defaults(), extra)
}

func pipelineOptions(p config.PipelineConfig) retrievaluc.Options {
	return retrievaluc.Options{
		MinSafe:             p.MinSafeResults,
		Target:              p.TargetCount,
		MaxCandidates:       p.MaxCandidates,
		Workers:             p.Workers,
		RecipeConfidenceMin: p.RecipeConfidenceMin,
		Budgets: domretrieval.Budgets{
			Retrieval: time.Duration(p.BudgetsMs.Retrieval) * time.Millisecond,
			Safety:    time.Duration(p.BudgetsMs.Safety) * time.Millisecond,
			Scoring:   time.Duration(p.BudgetsMs.Scoring) * time.Millisecond,
		},
		Retry: retrievaluc.RetryPolicy{
			Attempts:   p.Retry.Attempts,
			BaseDelay:  time.Duration(p.Retry.BaseDelayMs) * time.Millisecond,
			Multiplier: p.Retry.Multiplier,
		},
	}
}

// gateThresholds applies non-zero configured tiers over the defaults.
func gateThresholds(g config.GatesConfig) scoring.GateThresholds {
	th := scoring.DefaultGateThresholds()
	setInt := func(dst *int, v int) {
		if v > 0 {
			*dst = v
		}
	}
	setFloat := func(dst *float64, v float64) {
		if v > 0 {
			*dst = v
		}
	}
	setInt(&th.QuickMinutesPass, g.QuickMinutesPass)
	setInt(&th.QuickMinutesSoft, g.QuickMinutesSoft)
	setInt(&th.QuickIngredientsPass, g.QuickIngredientsPass)
	setInt(&th.QuickIngredientsSoft, g.QuickIngredientsSoft)
	setInt(&th.BeginnerStepsPass, g.BeginnerStepsPass)
	setInt(&th.BeginnerStepsSoft, g.BeginnerStepsSoft)
	setFloat(&th.HealthCaloriesExcellent, g.HealthCaloriesExcellent)
	setFloat(&th.HealthCaloriesGood, g.HealthCaloriesGood)
	setFloat(&th.HealthCaloriesSoft, g.HealthCaloriesSoft)
	setFloat(&th.EventVisualPass, g.EventVisualPass)
	return th
}
