package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	// DriverNone runs without Redis: no persisted policies, cache or stats.
	DriverNone = "none"
)

// Search providers.
const (
	ProviderCSE     = "cse"
	ProviderFixture = "fixture"
)

// Similarity backends for the reranker.
const (
	SimilarityTFIDF     = "tfidf"
	SimilarityEmbedding = "embedding"
)

// Config holds the recipegate API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Search    SearchConfig    `yaml:"search"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Rerank    RerankConfig    `yaml:"rerank"`
	Gates     GatesConfig     `yaml:"gates"`
	Policy    PolicyConfig    `yaml:"policy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Storage   StorageConfig   `yaml:"storage"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis, none (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig selects and configures the external search provider.
type SearchConfig struct {
	Provider    string `yaml:"provider"` // cse, fixture (default: cse)
	APIKey      string `yaml:"api_key"`
	EngineID    string `yaml:"engine_id"`
	BaseURL     string `yaml:"base_url"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	FixturePath string `yaml:"fixture_path"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 disables the search cache
}

// BudgetsConfig are per-phase latency budgets in milliseconds.
type BudgetsConfig struct {
	Retrieval int `yaml:"retrieval"`
	Safety    int `yaml:"safety"`
	Scoring   int `yaml:"scoring"`
}

// RetryConfig bounds retries of one external search call.
type RetryConfig struct {
	Attempts    int     `yaml:"attempts"`
	BaseDelayMs int     `yaml:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier"`
}

// PipelineConfig holds stepwise retrieval limits.
type PipelineConfig struct {
	MinSafeResults      int           `yaml:"min_safe_results"`
	TargetCount         int           `yaml:"target_count"`
	MaxCandidates       int           `yaml:"max_candidates"`
	Workers             int           `yaml:"workers"` // 0 = GOMAXPROCS
	RecipeConfidenceMin float64       `yaml:"recipe_confidence_min"`
	BudgetsMs           BudgetsConfig `yaml:"budgets_ms"`
	Retry               RetryConfig   `yaml:"retry"`
}

// EmbeddingConfig configures the embedding similarity backend.
type EmbeddingConfig struct {
	APIKey      string            `yaml:"api_key"`
	BaseURL     string            `yaml:"base_url"`
	Model       string            `yaml:"model"`
	Dimensions  int               `yaml:"dimensions"`
	Instruction string            `yaml:"instruction"` // prepended to every text, e.g. "query: "
	Budget      TokenBudgetConfig `yaml:"budget"`
}

// TokenBudgetConfig caps embedding token spend. Zero limits mean unlimited.
type TokenBudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"`
	Action            string `yaml:"action"` // warn, reject (default: warn)
}

// RerankConfig holds diversity reranking settings.
type RerankConfig struct {
	Lambda     float64         `yaml:"lambda"`
	Similarity string          `yaml:"similarity"` // tfidf, embedding (default: tfidf)
	Embedding  EmbeddingConfig `yaml:"embedding"`
}

// GatesConfig overrides context gate tiers. Zero keeps the built-in tier.
type GatesConfig struct {
	QuickMinutesPass        int     `yaml:"quick_minutes_pass"`
	QuickMinutesSoft        int     `yaml:"quick_minutes_soft"`
	QuickIngredientsPass    int     `yaml:"quick_ingredients_pass"`
	QuickIngredientsSoft    int     `yaml:"quick_ingredients_soft"`
	BeginnerStepsPass       int     `yaml:"beginner_steps_pass"`
	BeginnerStepsSoft       int     `yaml:"beginner_steps_soft"`
	HealthCaloriesExcellent float64 `yaml:"health_calories_excellent"`
	HealthCaloriesGood      float64 `yaml:"health_calories_good"`
	HealthCaloriesSoft      float64 `yaml:"health_calories_soft"`
	EventVisualPass         float64 `yaml:"event_visual_pass"`
}

// PolicyOverride is one configured domain policy, merged over the built-in table.
type PolicyOverride struct {
	Domain string  `yaml:"domain"`
	Kind   string  `yaml:"kind"`
	Boost  float64 `yaml:"boost"`
	Reason string  `yaml:"reason"`
}

// PolicyConfig holds domain policy overrides.
type PolicyConfig struct {
	Overrides []PolicyOverride `yaml:"overrides"`
}

// TelemetryConfig holds the telemetry sink settings.
type TelemetryConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	Buffer     int    `yaml:"buffer"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands env variables in data, decodes it, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverValkey
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Search.Provider == "" {
		c.Search.Provider = ProviderCSE
	}
	if c.Search.TimeoutSec <= 0 {
		c.Search.TimeoutSec = 10
	}
	c.Pipeline.applyDefaults()
	if c.Rerank.Lambda == 0 {
		c.Rerank.Lambda = 0.7
	}
	if c.Rerank.Similarity == "" {
		c.Rerank.Similarity = SimilarityTFIDF
	}
	if c.Rerank.Embedding.Model == "" {
		c.Rerank.Embedding.Model = "text-embedding-3-small"
	}
	if c.Rerank.Embedding.Budget.Action == "" {
		c.Rerank.Embedding.Budget.Action = "warn"
	}
	if c.Telemetry.SQLitePath == "" {
		c.Telemetry.SQLitePath = "recipegate-telemetry.db"
	}
	if c.Telemetry.Buffer <= 0 {
		c.Telemetry.Buffer = 1024
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "recipegate:"
	}
}

func (p *PipelineConfig) applyDefaults() {
	if p.MinSafeResults <= 0 {
		p.MinSafeResults = 3
	}
	if p.TargetCount <= 0 {
		p.TargetCount = 10
	}
	if p.MaxCandidates <= 0 {
		p.MaxCandidates = 50
	}
	if p.RecipeConfidenceMin == 0 {
		p.RecipeConfidenceMin = 0.2
	}
	if p.BudgetsMs.Retrieval <= 0 {
		p.BudgetsMs.Retrieval = 3000
	}
	if p.BudgetsMs.Safety <= 0 {
		p.BudgetsMs.Safety = 500
	}
	if p.BudgetsMs.Scoring <= 0 {
		p.BudgetsMs.Scoring = 500
	}
	if p.Retry.Attempts <= 0 {
		p.Retry.Attempts = 3
	}
	if p.Retry.BaseDelayMs <= 0 {
		p.Retry.BaseDelayMs = 800
	}
	if p.Retry.Multiplier <= 0 {
		p.Retry.Multiplier = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis, DriverValkey, "":
		if len(c.Database.Addrs) == 0 {
			return errors.New("database.addrs is required")
		}
	case DriverNone:
	default:
		return fmt.Errorf("database.driver must be \"redis\", \"valkey\" or \"none\", got %q", c.Database.Driver)
	}

	switch c.Search.Provider {
	case ProviderCSE, "":
	case ProviderFixture:
		if c.Search.FixturePath == "" {
			return errors.New("search.fixture_path is required for the fixture provider")
		}
	default:
		return fmt.Errorf("search.provider must be \"cse\" or \"fixture\", got %q", c.Search.Provider)
	}
	if c.Search.CacheTTLSec < 0 {
		return fmt.Errorf("search.cache_ttl_sec must be non-negative, got %d", c.Search.CacheTTLSec)
	}

	if err := c.Pipeline.validate(); err != nil {
		return err
	}

	if c.Rerank.Lambda < 0.5 || c.Rerank.Lambda > 0.9 {
		return fmt.Errorf("rerank.lambda must be between 0.5 and 0.9, got %g", c.Rerank.Lambda)
	}
	switch c.Rerank.Similarity {
	case SimilarityTFIDF, "":
	case SimilarityEmbedding:
		if c.Rerank.Embedding.APIKey == "" {
			return errors.New("rerank.embedding.api_key is required for embedding similarity")
		}
	default:
		return fmt.Errorf("rerank.similarity must be \"tfidf\" or \"embedding\", got %q", c.Rerank.Similarity)
	}
	if b := c.Rerank.Embedding.Budget; b.DailyTokenLimit < 0 || b.MonthlyTokenLimit < 0 {
		return errors.New("rerank.embedding.budget limits must be >= 0")
	}
	switch c.Rerank.Embedding.Budget.Action {
	case "warn", "reject", "":
	default:
		return fmt.Errorf("rerank.embedding.budget.action must be \"warn\" or \"reject\", got %q",
			c.Rerank.Embedding.Budget.Action)
	}

	for i, o := range c.Policy.Overrides {
		switch o.Kind {
		case "prefer", "exclude", "whitelist", "neutral":
		default:
			return fmt.Errorf("policy.overrides[%d].kind must be prefer, exclude, whitelist or neutral, got %q", i, o.Kind)
		}
		if strings.TrimSpace(o.Domain) == "" {
			return fmt.Errorf("policy.overrides[%d].domain is required", i)
		}
		if o.Boost <= 0 {
			return fmt.Errorf("policy.overrides[%d].boost must be positive, got %g", i, o.Boost)
		}
	}
	return nil
}

func (p *PipelineConfig) validate() error {
	if p.MinSafeResults > p.TargetCount {
		return fmt.Errorf("pipeline.min_safe_results (%d) must not exceed target_count (%d)",
			p.MinSafeResults, p.TargetCount)
	}
	if p.MaxCandidates < p.TargetCount {
		return fmt.Errorf("pipeline.max_candidates (%d) must be at least target_count (%d)",
			p.MaxCandidates, p.TargetCount)
	}
	if p.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be non-negative, got %d", p.Workers)
	}
	if p.RecipeConfidenceMin < 0 || p.RecipeConfidenceMin > 1 {
		return fmt.Errorf("pipeline.recipe_confidence_min must be between 0 and 1, got %g", p.RecipeConfidenceMin)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
