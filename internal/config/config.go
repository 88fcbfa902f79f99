// Package config loads and validates candidex configuration.
// Precedence: defaults < config file < CANDIDEX_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/candidex/candidex/internal/chunk"
)

// Duration is a time.Duration that round-trips through YAML in the
// human-readable "30s" form.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string ("30s") or an
// integer nanosecond count.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(v)
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std converts to a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the complete candidex configuration.
type Config struct {
	Paths    PathsConfig    `yaml:"paths"`
	Search   SearchConfig   `yaml:"search"`
	Embed    EmbedConfig    `yaml:"embeddings"`
	Rerank   RerankConfig   `yaml:"rerank"`
	Build    BuildConfig    `yaml:"build"`
	Criteria CriteriaPolicy `yaml:"criteria"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PathsConfig configures on-disk locations.
type PathsConfig struct {
	// DataDir holds corpus artifacts, the lexical index, and the
	// embedding cache. One subdirectory per corpus name.
	DataDir string `yaml:"data_dir"`
}

// SearchConfig configures query-time behavior.
type SearchConfig struct {
	// SemanticWeight and LexicalWeight are the default RRF fusion
	// weights. They do not need to sum to 1.
	SemanticWeight float64 `yaml:"semantic_weight"`
	LexicalWeight  float64 `yaml:"lexical_weight"`

	// RRFConstant is the RRF smoothing parameter k (default 60).
	RRFConstant int `yaml:"rrf_constant"`

	// RecallFactor sizes each backend's candidate list relative to the
	// final k during fusion (default 3, i.e. N = 3k).
	RecallFactor int `yaml:"recall_factor"`

	// RecallMultiplier sizes the rerank over-fetch (default 10).
	RecallMultiplier int `yaml:"recall_multiplier"`

	// DefaultLimit and MaxLimit bound result list sizes.
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`

	// Timeout bounds a whole query including remote calls.
	Timeout Duration `yaml:"timeout"`
}

// EmbedConfig configures the embedding provider.
type EmbedConfig struct {
	Host      string   `yaml:"host"`
	Model     string   `yaml:"model"`
	APIKey    string   `yaml:"api_key"`
	BatchSize int      `yaml:"batch_size"`
	Timeout   Duration `yaml:"timeout"`

	// QueryCacheSize bounds the in-memory LRU for query embeddings.
	QueryCacheSize int `yaml:"query_cache_size"`
}

// RerankConfig configures the cross-encoder reranking provider.
type RerankConfig struct {
	Host    string   `yaml:"host"`
	Model   string   `yaml:"model"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

// BuildConfig configures corpus builds.
type BuildConfig struct {
	// Workers bounds concurrent embedding batches during a build.
	Workers int `yaml:"workers"`
}

// CriteriaPolicy maps a weighted-search criterion name to the chunk
// types it scores against. The mapping is policy, not law: unknown
// criterion names score against all chunk types.
type CriteriaPolicy map[string][]chunk.Type

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{DataDir: "./data"},
		Search: SearchConfig{
			SemanticWeight:   0.7,
			LexicalWeight:    0.3,
			RRFConstant:      60,
			RecallFactor:     3,
			RecallMultiplier: 10,
			DefaultLimit:     10,
			MaxLimit:         20,
			Timeout:          Duration(30 * time.Second),
		},
		Embed: EmbedConfig{
			Host:           "https://api.voyageai.com",
			Model:          "voyage-2",
			BatchSize:      128,
			Timeout:        Duration(60 * time.Second),
			QueryCacheSize: 1000,
		},
		Rerank: RerankConfig{
			Host:    "https://api.voyageai.com",
			Model:   "rerank-lite-1",
			Timeout: Duration(30 * time.Second),
		},
		Build:    BuildConfig{Workers: 4},
		Criteria: DefaultCriteriaPolicy(),
		Logging:  LoggingConfig{Level: "info"},
	}
}

// DefaultCriteriaPolicy returns the built-in criterion-to-chunk-type
// mapping, inferred from field semantics.
func DefaultCriteriaPolicy() CriteriaPolicy {
	return CriteriaPolicy{
		"experience": {chunk.TypePosition},
		"education":  {chunk.TypeEducation},
		"skills":     {chunk.TypePosition, chunk.TypeSummary},
		"company":    {chunk.TypePosition, chunk.TypeSummary},
	}
}

// TypesFor resolves the chunk types a criterion scores against.
func (p CriteriaPolicy) TypesFor(name string) []chunk.Type {
	if types, ok := p[name]; ok && len(types) > 0 {
		return types
	}
	return chunk.AllTypes
}

// Load reads configuration from path (if non-empty), then applies
// environment overrides and validates.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv applies CANDIDEX_* environment variable overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("CANDIDEX_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
	}
	if v := os.Getenv("CANDIDEX_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.SemanticWeight = f
		}
	}
	if v := os.Getenv("CANDIDEX_LEXICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Search.LexicalWeight = f
		}
	}
	if v := os.Getenv("CANDIDEX_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Search.RRFConstant = n
		}
	}
	if v := os.Getenv("CANDIDEX_VOYAGE_API_KEY"); v != "" {
		c.Embed.APIKey = v
		c.Rerank.APIKey = v
	}
	if v := os.Getenv("CANDIDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks ranges and clamps recoverable values.
func (c *Config) Validate() error {
	if c.Search.SemanticWeight < 0 || c.Search.LexicalWeight < 0 {
		return fmt.Errorf("fusion weights must be non-negative (semantic=%v lexical=%v)",
			c.Search.SemanticWeight, c.Search.LexicalWeight)
	}
	if c.Search.SemanticWeight == 0 && c.Search.LexicalWeight == 0 {
		return fmt.Errorf("at least one fusion weight must be positive")
	}
	if c.Search.RRFConstant <= 0 {
		c.Search.RRFConstant = 60
	}
	if c.Search.RecallFactor < 1 {
		c.Search.RecallFactor = 3
	}
	if c.Search.RecallMultiplier < 1 {
		c.Search.RecallMultiplier = 10
	}
	if c.Search.DefaultLimit <= 0 {
		c.Search.DefaultLimit = 10
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		c.Search.MaxLimit = c.Search.DefaultLimit
	}
	if c.Embed.BatchSize <= 0 {
		c.Embed.BatchSize = 128
	}
	if c.Build.Workers <= 0 {
		c.Build.Workers = 4
	}
	if c.Paths.DataDir == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	return nil
}
