package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete legal-retrieval service configuration.
// It mirrors the component layout in SPEC_FULL.md Section 6.
type Config struct {
	Version     int               `yaml:"version" json:"version"`
	Paths       PathsConfig       `yaml:"paths" json:"paths"`
	Router      RouterConfig      `yaml:"router" json:"router"`
	Fusion      FusionConfig      `yaml:"fusion" json:"fusion"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings" json:"embeddings"`
	LLM         LLMConfig         `yaml:"llm" json:"llm"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
	Server      ServerConfig      `yaml:"server" json:"server"`
	Pagination  PaginationConfig  `yaml:"pagination" json:"pagination"`
}

// PathsConfig configures where corpus and derived-index files live on disk.
type PathsConfig struct {
	// DataDir holds articles.json/cases.json (§3 persisted corpus).
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// IndexDir holds the persisted vector partitions, the knowledge graph
	// mapping, and the pagination cache. The BM25 index is not stored here:
	// it is rebuilt in memory from the corpus at startup.
	IndexDir string `yaml:"index_dir" json:"index_dir"`
}

// RouterConfig configures the Router's (C7) default strategy weight vector
// and early-exit confidence threshold. Exposed as configurable per the
// spec's own instruction to make rule-table weights overridable, mirroring
// the teacher's layered SearchConfig pattern.
type RouterConfig struct {
	// DefaultWeights is the default per-strategy weight vector in strategy
	// order (basic_semantic, bm25_hybrid, query2doc_enhanced, hyde_enhanced,
	// knowledge_graph, llm_enhanced), renormalized over the selected subset.
	DefaultWeights []float64 `yaml:"default_weights" json:"default_weights"`
	// NonCriminalConfidenceThreshold is the is_criminal_law=false confidence
	// at or above which the router early-exits to basic_semantic only.
	NonCriminalConfidenceThreshold float64 `yaml:"non_criminal_confidence_threshold" json:"non_criminal_confidence_threshold"`
}

// FusionConfig configures weighted Reciprocal Rank Fusion (C9).
type FusionConfig struct {
	// RRFConstant is the RRF smoothing parameter k (default: 60).
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// ScoreWeight is lambda, the weight on the avg-normalized-score term
	// added to the rank-based RRF term (default: 0.3).
	ScoreWeight float64 `yaml:"score_weight" json:"score_weight"`
	// TopN is the number of fused results returned per search (default: 10).
	TopN int `yaml:"top_n" json:"top_n"`
}

// EmbeddingsConfig configures the embedding provider used by the vector
// store and the basic_semantic/bm25_hybrid/knowledge_graph strategies.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`

	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`

	// Thermal management settings for sustained embedding workloads.
	InterBatchDelay        string  `yaml:"inter_batch_delay" json:"inter_batch_delay"`
	TimeoutProgression     float64 `yaml:"timeout_progression" json:"timeout_progression"`
	RetryTimeoutMultiplier float64 `yaml:"retry_timeout_multiplier" json:"retry_timeout_multiplier"`
}

// LLMConfig configures the LLM Client (C5): provider selection, the daily
// cost budget and its warning/refusal thresholds, and request tuning shared
// by query2doc/HyDE/llm_enhanced generation and query classification.
type LLMConfig struct {
	// PrimaryProvider is "anthropic" or "openai".
	PrimaryProvider  string `yaml:"primary_provider" json:"primary_provider"`
	FallbackProvider string `yaml:"fallback_provider" json:"fallback_provider"`

	AnthropicModel string `yaml:"anthropic_model" json:"anthropic_model"`
	OpenAIModel    string `yaml:"openai_model" json:"openai_model"`

	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`
	MaxRetries     int    `yaml:"max_retries" json:"max_retries"`

	// DailyBudgetUSD is the daily spend ceiling; at 80% usage requests get a
	// soft warning, at 100% the LLM Client refuses further calls (callers
	// degrade to empty query2doc/HyDE strings and rule-based classification).
	DailyBudgetUSD   float64 `yaml:"daily_budget_usd" json:"daily_budget_usd"`
	WarnThreshold    float64 `yaml:"warn_threshold" json:"warn_threshold"`
	RefuseThreshold  float64 `yaml:"refuse_threshold" json:"refuse_threshold"`
	ResponseCacheCap int     `yaml:"response_cache_cap" json:"response_cache_cap"`

	// CircuitBreakerTripDuration is how long the breaker stays open after
	// tripping before probing with a half-open request (default: 60s).
	CircuitBreakerTripDuration string `yaml:"circuit_breaker_trip_duration" json:"circuit_breaker_trip_duration"`
	// FallbackStickyDuration is loaded and merged (default: 5m), but the LLM
	// Client does not read it: its failover always sticks for a fixed 5m.
	FallbackStickyDuration string `yaml:"fallback_sticky_duration" json:"fallback_sticky_duration"`
}

// PerformanceConfig configures concurrency and deadline tuning for the
// orchestrator's Stage 4 strategy fan-out.
type PerformanceConfig struct {
	// MaxConcurrentStrategies caps the Stage 4 errgroup concurrency
	// (default: min(selected strategies, 8)).
	MaxConcurrentStrategies int    `yaml:"max_concurrent_strategies" json:"max_concurrent_strategies"`
	RequestDeadline         string `yaml:"request_deadline" json:"request_deadline"` // default: 15s
	CacheSize               int    `yaml:"cache_size" json:"cache_size"`             // LRU capacity shared by embedding/classification caches
}

// ServerConfig configures the long-running search service process.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
	LogLevel   string `yaml:"log_level" json:"log_level"`
}

// PaginationConfig configures the Load-more-cases results cache (§6).
type PaginationConfig struct {
	TTL string `yaml:"ttl" json:"ttl"` // default: 5m
}

// defaultWeights is the default per-strategy weight vector from §C7:
// basic_semantic, bm25_hybrid, query2doc_enhanced, hyde_enhanced,
// knowledge_graph, llm_enhanced.
var defaultWeights = []float64{0.25, 0.20, 0.20, 0.15, 0.15, 0.05}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir:  "data",
			IndexDir: "data/index",
		},
		Router: RouterConfig{
			DefaultWeights:                 append([]float64(nil), defaultWeights...),
			NonCriminalConfidenceThreshold: 0.8,
		},
		Fusion: FusionConfig{
			RRFConstant: 60,
			ScoreWeight: 0.3,
			TopN:        10,
		},
		Embeddings: EmbeddingsConfig{
			Provider:               "", // Empty selects Ollama; there is no automatic static fallback
			Model:                  "qwen3-embedding:8b",
			Dimensions:             0, // Auto-detect from embedder
			BatchSize:              32,
			OllamaHost:             "", // Empty uses default http://localhost:11434
			InterBatchDelay:        "", // Disabled by default
			TimeoutProgression:     1.5,
			RetryTimeoutMultiplier: 1.0,
		},
		LLM: LLMConfig{
			PrimaryProvider:            "anthropic",
			FallbackProvider:           "openai",
			AnthropicModel:             "claude-3-5-haiku-latest",
			OpenAIModel:                "gpt-4o-mini",
			RequestTimeout:             "10s",
			MaxRetries:                 3,
			DailyBudgetUSD:             10.0,
			WarnThreshold:              0.8,
			RefuseThreshold:            1.0,
			ResponseCacheCap:           1000,
			CircuitBreakerTripDuration: "60s",
			FallbackStickyDuration:     "5m",
		},
		Performance: PerformanceConfig{
			MaxConcurrentStrategies: 8,
			RequestDeadline:         "15s",
			CacheSize:               1000,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8080",
			LogLevel:   "info",
		},
		Pagination: PaginationConfig{
			TTL: "5m",
		},
	}
}

// defaultUserConfigDir returns ~/.config/legal-retrieval (or the
// XDG_CONFIG_HOME equivalent), used as the global config location.
func defaultUserConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "legal-retrieval")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "legal-retrieval")
	}
	return filepath.Join(home, ".config", "legal-retrieval")
}

// GetUserConfigPath returns the path to the user/global configuration file.
func GetUserConfigPath() string {
	return filepath.Join(defaultUserConfigDir(), "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist (that's OK).
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load loads configuration from the specified directory, applying overrides
// in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/legal-retrieval/config.yaml)
//  3. Project config (legal-retrieval.yaml in dir)
//  4. Environment variables (RETRIEVAL_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from legal-retrieval.yaml or .yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "legal-retrieval.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, "legal-retrieval.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	if other.Paths.IndexDir != "" {
		c.Paths.IndexDir = other.Paths.IndexDir
	}

	if len(other.Router.DefaultWeights) > 0 {
		c.Router.DefaultWeights = other.Router.DefaultWeights
	}
	if other.Router.NonCriminalConfidenceThreshold != 0 {
		c.Router.NonCriminalConfidenceThreshold = other.Router.NonCriminalConfidenceThreshold
	}

	if other.Fusion.RRFConstant != 0 {
		c.Fusion.RRFConstant = other.Fusion.RRFConstant
	}
	if other.Fusion.ScoreWeight != 0 {
		c.Fusion.ScoreWeight = other.Fusion.ScoreWeight
	}
	if other.Fusion.TopN != 0 {
		c.Fusion.TopN = other.Fusion.TopN
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.InterBatchDelay != "" {
		c.Embeddings.InterBatchDelay = other.Embeddings.InterBatchDelay
	}
	if other.Embeddings.TimeoutProgression != 0 {
		c.Embeddings.TimeoutProgression = other.Embeddings.TimeoutProgression
	}
	if other.Embeddings.RetryTimeoutMultiplier != 0 {
		c.Embeddings.RetryTimeoutMultiplier = other.Embeddings.RetryTimeoutMultiplier
	}

	if other.LLM.PrimaryProvider != "" {
		c.LLM.PrimaryProvider = other.LLM.PrimaryProvider
	}
	if other.LLM.FallbackProvider != "" {
		c.LLM.FallbackProvider = other.LLM.FallbackProvider
	}
	if other.LLM.AnthropicModel != "" {
		c.LLM.AnthropicModel = other.LLM.AnthropicModel
	}
	if other.LLM.OpenAIModel != "" {
		c.LLM.OpenAIModel = other.LLM.OpenAIModel
	}
	if other.LLM.RequestTimeout != "" {
		c.LLM.RequestTimeout = other.LLM.RequestTimeout
	}
	if other.LLM.MaxRetries != 0 {
		c.LLM.MaxRetries = other.LLM.MaxRetries
	}
	if other.LLM.DailyBudgetUSD != 0 {
		c.LLM.DailyBudgetUSD = other.LLM.DailyBudgetUSD
	}
	if other.LLM.WarnThreshold != 0 {
		c.LLM.WarnThreshold = other.LLM.WarnThreshold
	}
	if other.LLM.RefuseThreshold != 0 {
		c.LLM.RefuseThreshold = other.LLM.RefuseThreshold
	}
	if other.LLM.ResponseCacheCap != 0 {
		c.LLM.ResponseCacheCap = other.LLM.ResponseCacheCap
	}
	if other.LLM.CircuitBreakerTripDuration != "" {
		c.LLM.CircuitBreakerTripDuration = other.LLM.CircuitBreakerTripDuration
	}
	if other.LLM.FallbackStickyDuration != "" {
		c.LLM.FallbackStickyDuration = other.LLM.FallbackStickyDuration
	}

	if other.Performance.MaxConcurrentStrategies != 0 {
		c.Performance.MaxConcurrentStrategies = other.Performance.MaxConcurrentStrategies
	}
	if other.Performance.RequestDeadline != "" {
		c.Performance.RequestDeadline = other.Performance.RequestDeadline
	}
	if other.Performance.CacheSize != 0 {
		c.Performance.CacheSize = other.Performance.CacheSize
	}

	if other.Server.ListenAddr != "" {
		c.Server.ListenAddr = other.Server.ListenAddr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}

	if other.Pagination.TTL != "" {
		c.Pagination.TTL = other.Pagination.TTL
	}
}

// applyEnvOverrides applies RETRIEVAL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RETRIEVAL_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("RETRIEVAL_INDEX_DIR"); v != "" {
		c.Paths.IndexDir = v
	}

	if v := os.Getenv("RETRIEVAL_ROUTER_WEIGHTS"); v != "" {
		if weights, err := parseWeightVector(v); err == nil {
			c.Router.DefaultWeights = weights
		}
	}
	if v := os.Getenv("RETRIEVAL_NON_CRIMINAL_CONFIDENCE_THRESHOLD"); v != "" {
		if t, err := parseFloat64(v); err == nil && t >= 0 && t <= 1 {
			c.Router.NonCriminalConfidenceThreshold = t
		}
	}

	if v := os.Getenv("RETRIEVAL_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Fusion.RRFConstant = k
		}
	}
	if v := os.Getenv("RETRIEVAL_FUSION_SCORE_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 {
			c.Fusion.ScoreWeight = w
		}
	}
	if v := os.Getenv("RETRIEVAL_FUSION_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Fusion.TopN = n
		}
	}

	if v := os.Getenv("RETRIEVAL_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RETRIEVAL_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("RETRIEVAL_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("RETRIEVAL_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}

	if v := os.Getenv("RETRIEVAL_LLM_PRIMARY_PROVIDER"); v != "" {
		c.LLM.PrimaryProvider = v
	}
	if v := os.Getenv("RETRIEVAL_LLM_FALLBACK_PROVIDER"); v != "" {
		c.LLM.FallbackProvider = v
	}
	if v := os.Getenv("RETRIEVAL_LLM_DAILY_BUDGET_USD"); v != "" {
		if b, err := parseFloat64(v); err == nil && b >= 0 {
			c.LLM.DailyBudgetUSD = b
		}
	}

	if v := os.Getenv("RETRIEVAL_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("RETRIEVAL_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}

	if v := os.Getenv("RETRIEVAL_REQUEST_DEADLINE"); v != "" {
		c.Performance.RequestDeadline = v
	}
	if v := os.Getenv("RETRIEVAL_MAX_CONCURRENT_STRATEGIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Performance.MaxConcurrentStrategies = n
		}
	}

	if v := os.Getenv("RETRIEVAL_PAGINATION_TTL"); v != "" {
		c.Pagination.TTL = v
	}
}

// parseWeightVector parses a comma-separated list of 6 weights, e.g.
// "0.25,0.2,0.2,0.15,0.15,0.05".
func parseWeightVector(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 6 {
		return nil, fmt.Errorf("expected 6 comma-separated weights, got %d", len(parts))
	}
	weights := make([]float64, 6)
	for i, p := range parts {
		w, err := parseFloat64(p)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		weights[i] = w
	}
	return weights, nil
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if len(c.Router.DefaultWeights) != 6 {
		return fmt.Errorf("router.default_weights must have exactly 6 entries, got %d", len(c.Router.DefaultWeights))
	}
	sum := 0.0
	for _, w := range c.Router.DefaultWeights {
		if w < 0 {
			return fmt.Errorf("router.default_weights entries must be non-negative, got %f", w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("router.default_weights must sum to 1.0, got %.4f", sum)
	}

	if c.Router.NonCriminalConfidenceThreshold < 0 || c.Router.NonCriminalConfidenceThreshold > 1 {
		return fmt.Errorf("router.non_criminal_confidence_threshold must be between 0 and 1, got %f", c.Router.NonCriminalConfidenceThreshold)
	}

	if c.Fusion.RRFConstant <= 0 {
		return fmt.Errorf("fusion.rrf_constant must be positive, got %d", c.Fusion.RRFConstant)
	}
	if c.Fusion.ScoreWeight < 0 {
		return fmt.Errorf("fusion.score_weight must be non-negative, got %f", c.Fusion.ScoreWeight)
	}
	if c.Fusion.TopN <= 0 {
		return fmt.Errorf("fusion.top_n must be positive, got %d", c.Fusion.TopN)
	}

	if c.Embeddings.Provider != "" {
		validProviders := map[string]bool{"static": true, "ollama": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	if c.LLM.PrimaryProvider != "" {
		validLLMProviders := map[string]bool{"anthropic": true, "openai": true}
		if !validLLMProviders[strings.ToLower(c.LLM.PrimaryProvider)] {
			return fmt.Errorf("llm.primary_provider must be 'anthropic' or 'openai', got %s", c.LLM.PrimaryProvider)
		}
	}
	if c.LLM.DailyBudgetUSD < 0 {
		return fmt.Errorf("llm.daily_budget_usd must be non-negative, got %f", c.LLM.DailyBudgetUSD)
	}
	if c.LLM.WarnThreshold < 0 || c.LLM.WarnThreshold > 1 {
		return fmt.Errorf("llm.warn_threshold must be between 0 and 1, got %f", c.LLM.WarnThreshold)
	}
	if c.LLM.RefuseThreshold < c.LLM.WarnThreshold {
		return fmt.Errorf("llm.refuse_threshold must be >= llm.warn_threshold")
	}

	if _, err := time.ParseDuration(c.Performance.RequestDeadline); err != nil {
		return fmt.Errorf("performance.request_deadline must be a valid duration, got %s", c.Performance.RequestDeadline)
	}
	if c.Performance.MaxConcurrentStrategies <= 0 {
		return fmt.Errorf("performance.max_concurrent_strategies must be positive, got %d", c.Performance.MaxConcurrentStrategies)
	}

	if _, err := time.ParseDuration(c.Pagination.TTL); err != nil {
		return fmt.Errorf("pagination.ttl must be a valid duration, got %s", c.Pagination.TTL)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}
