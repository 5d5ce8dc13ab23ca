package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"invalid port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing addrs", func(c *Config) { c.Database.Addrs = nil }, "database.addrs"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "memcached" }, "database.driver"},
		{"unknown provider", func(c *Config) { c.Search.Provider = "bing" }, "search.provider"},
		{"fixture without path", func(c *Config) { c.Search.Provider = ProviderFixture }, "search.fixture_path"},
		{"negative cache ttl", func(c *Config) { c.Search.CacheTTLSec = -1 }, "cache_ttl_sec"},
		{"min safe above target", func(c *Config) { c.Pipeline.MinSafeResults = 20 }, "min_safe_results"},
		{"candidates below target", func(c *Config) { c.Pipeline.MaxCandidates = 5 }, "max_candidates"},
		{"confidence out of range", func(c *Config) { c.Pipeline.RecipeConfidenceMin = 1.5 }, "recipe_confidence_min"},
		{"lambda out of range", func(c *Config) { c.Rerank.Lambda = 0.95 }, "rerank.lambda"},
		{"unknown similarity", func(c *Config) { c.Rerank.Similarity = "bm25" }, "rerank.similarity"},
		{"embedding without key", func(c *Config) { c.Rerank.Similarity = SimilarityEmbedding }, "api_key"},
		{"negative budget", func(c *Config) { c.Rerank.Embedding.Budget.DailyTokenLimit = -1 }, "budget limits"},
		{"unknown budget action", func(c *Config) { c.Rerank.Embedding.Budget.Action = "drop" }, "budget.action"},
		{
			"bad override kind",
			func(c *Config) {
				c.Policy.Overrides = []PolicyOverride{{Domain: "a.com", Kind: "love", Boost: 1}}
			},
			"policy.overrides[0].kind",
		},
		{
			"override without boost",
			func(c *Config) {
				c.Policy.Overrides = []PolicyOverride{{Domain: "a.com", Kind: "prefer"}}
			},
			"policy.overrides[0].boost",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_NoneDriverNeedsNoAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Driver = DriverNone
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Driver != DriverValkey {
		t.Errorf("expected valkey driver, got %q", cfg.Database.Driver)
	}
	if cfg.Search.Provider != ProviderCSE {
		t.Errorf("expected cse provider, got %q", cfg.Search.Provider)
	}
	p := cfg.Pipeline
	if p.MinSafeResults != 3 || p.TargetCount != 10 || p.MaxCandidates != 50 {
		t.Errorf("unexpected pipeline limits %+v", p)
	}
	if p.Retry.Attempts != 3 || p.Retry.BaseDelayMs != 800 || p.Retry.Multiplier != 2 {
		t.Errorf("unexpected retry %+v", p.Retry)
	}
	if p.BudgetsMs.Retrieval != 3000 || p.BudgetsMs.Safety != 500 || p.BudgetsMs.Scoring != 500 {
		t.Errorf("unexpected budgets %+v", p.BudgetsMs)
	}
	if cfg.Rerank.Lambda != 0.7 || cfg.Rerank.Similarity != SimilarityTFIDF {
		t.Errorf("unexpected rerank %+v", cfg.Rerank)
	}
	if cfg.Telemetry.Buffer != 1024 {
		t.Errorf("expected Buffer=1024, got %d", cfg.Telemetry.Buffer)
	}
	if cfg.Storage.KeyPrefix != "recipegate:" {
		t.Errorf("expected KeyPrefix='recipegate:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Pipeline: PipelineConfig{MinSafeResults: 5, Workers: 4},
		Rerank:   RerankConfig{Lambda: 0.6},
		Storage:  StorageConfig{KeyPrefix: "custom:"},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 || cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("http timeouts overridden: %+v", cfg.HTTP)
	}
	if cfg.Pipeline.MinSafeResults != 5 || cfg.Pipeline.Workers != 4 {
		t.Errorf("pipeline overridden: %+v", cfg.Pipeline)
	}
	if cfg.Rerank.Lambda != 0.6 {
		t.Errorf("expected Lambda=0.6, got %g", cfg.Rerank.Lambda)
	}
	if cfg.Storage.KeyPrefix != "custom:" {
		t.Errorf("expected KeyPrefix='custom:', got %q", cfg.Storage.KeyPrefix)
	}
}

func TestParse_ExpandsEnvVars(t *testing.T) {
	t.Setenv("RG_TEST_CSE_KEY", "k-123")

	cfg, err := Parse([]byte(`
http:
  port: ${RG_TEST_PORT:-9090}
database:
  driver: none
search:
  provider: cse
  api_key: ${RG_TEST_CSE_KEY}
  engine_id: ${RG_TEST_UNSET_ENGINE}
policy:
  overrides:
    - domain: example.com
      kind: prefer
      boost: 1.2
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.HTTP.Port)
	}
	if cfg.Search.APIKey != "k-123" {
		t.Errorf("api key = %q", cfg.Search.APIKey)
	}
	if cfg.Search.EngineID != "" {
		t.Errorf("engine id = %q, want empty", cfg.Search.EngineID)
	}
	if len(cfg.Policy.Overrides) != 1 || cfg.Policy.Overrides[0].Boost != 1.2 {
		t.Errorf("overrides = %+v", cfg.Policy.Overrides)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected yaml error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error for missing addrs")
	}
}
