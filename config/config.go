// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads placerank settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/placerank/ai"
	"github.com/poiesic/placerank/core"
	"github.com/poiesic/placerank/expansion"
	"github.com/poiesic/placerank/retrieval"
	"github.com/poiesic/placerank/sentiment"
)

// DefaultPageSize is the number of results a search returns when no limit
// is given.
const DefaultPageSize = 50

// Config holds the placerank configuration.
type Config struct {
	Index     IndexConfig     `yaml:"index"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Expansion ExpansionConfig `yaml:"expansion"`
	AI        AIConfig        `yaml:"ai"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// IndexConfig locates the listing index and tunes bulk loading.
type IndexConfig struct {
	Path      string `yaml:"path"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`
}

// SentimentConfig locates the review history and sets how it is scored.
// Snapshot is a JSON file; Store is a badger directory. Store wins when
// both are set.
type SentimentConfig struct {
	Snapshot    string  `yaml:"snapshot"`
	Store       string  `yaml:"store"`
	Retention   int     `yaml:"retention"`
	DecayRate   float64 `yaml:"decay_rate"` // 0 selects the default rate
	Aggregation string  `yaml:"aggregation"`
}

// RetrievalConfig configures the retrieval model.
type RetrievalConfig struct {
	Strategy      string `yaml:"strategy"`
	TermPolicy    string `yaml:"term_policy"`
	Fields        string `yaml:"fields"`
	Connector     string `yaml:"connector"`
	CacheSize     int    `yaml:"cache_size"`
	Autoexpansion bool   `yaml:"autoexpansion"`
	NoSpellCheck  bool   `yaml:"no_spell_check"`
	PageSize      int    `yaml:"page_size"`
}

// ExpansionConfig configures query expansion.
type ExpansionConfig struct {
	Strategy  string  `yaml:"strategy"`
	Thesaurus string  `yaml:"thesaurus"`
	TopN      int     `yaml:"top_n"`
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
	PoolSize  int     `yaml:"pool_size"`
}

// AIConfig holds the embedding and mask filling endpoints.
type AIConfig struct {
	EmbeddingHost       string        `yaml:"embedding_host"`
	MaskingHost         string        `yaml:"masking_host"`
	EmbeddingModel      string        `yaml:"embedding_model"`
	MaskingModel        string        `yaml:"masking_model"`
	Token               string        `yaml:"token"`
	RequestsPerSecond   float64       `yaml:"requests_per_second"`
	Burst               int           `yaml:"burst"`
	MaxAttempts         int           `yaml:"max_attempts"`
	RetryDelay          time.Duration `yaml:"retry_delay"`
	BreakerMinRequests  uint32        `yaml:"breaker_min_requests"`
	BreakerFailureRatio float64       `yaml:"breaker_failure_ratio"`
	BreakerOpenTimeout  time.Duration `yaml:"breaker_open_timeout"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// Load reads, defaults and validates the YAML file at path. ${VAR} and
// ${VAR:-default} references are replaced from the environment.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: failed to parse config: %w", core.ErrInvalidConfig, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Index.Path == "" {
		c.Index.Path = "placerank.bleve"
	}
	if c.Index.BatchSize <= 0 {
		c.Index.BatchSize = 500
	}
	if c.Sentiment.Retention <= 0 {
		c.Sentiment.Retention = sentiment.DefaultRetention
	}
	if c.Sentiment.DecayRate == 0 {
		c.Sentiment.DecayRate = sentiment.DefaultDecayRate
	}
	if c.Retrieval.Fields == "" {
		c.Retrieval.Fields = core.DefaultSearchFields.String()
	}
	if c.Retrieval.Connector == "" {
		c.Retrieval.Connector = expansion.DefaultConnector
	}
	if c.Retrieval.PageSize <= 0 {
		c.Retrieval.PageSize = DefaultPageSize
	}
	if c.Expansion.PoolSize < 0 {
		c.Expansion.PoolSize = 0
	}

	defaults := ai.DefaultConfig()
	if c.AI.EmbeddingHost == "" {
		c.AI.EmbeddingHost = defaults.EmbeddingHost
	}
	if c.AI.MaskingHost == "" {
		c.AI.MaskingHost = defaults.MaskingHost
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = defaults.EmbeddingModel
	}
	if c.AI.MaskingModel == "" {
		c.AI.MaskingModel = defaults.MaskingModel
	}
	if c.AI.RequestsPerSecond == 0 {
		c.AI.RequestsPerSecond = defaults.RequestsPerSecond
	}
	if c.AI.Burst <= 0 {
		c.AI.Burst = defaults.Burst
	}
	if c.AI.MaxAttempts <= 0 {
		c.AI.MaxAttempts = defaults.MaxAttempts
	}
	if c.AI.RetryDelay <= 0 {
		c.AI.RetryDelay = defaults.RetryDelay
	}
	if c.AI.BreakerMinRequests == 0 {
		c.AI.BreakerMinRequests = defaults.BreakerMinRequests
	}
	if c.AI.BreakerFailureRatio == 0 {
		c.AI.BreakerFailureRatio = defaults.BreakerFailureRatio
	}
	if c.AI.BreakerOpenTimeout <= 0 {
		c.AI.BreakerOpenTimeout = defaults.BreakerOpenTimeout
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout <= 0 {
		c.HTTP.ReadTimeout = 10 * time.Second
	}
	if c.HTTP.WriteTimeout <= 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness. Every error wraps
// core.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	check := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if c.Sentiment.DecayRate < 0 {
		check(fmt.Errorf("%w: sentiment.decay_rate cannot be negative", core.ErrInvalidConfig))
	}
	_, err := sentiment.ParseAggregation(c.Sentiment.Aggregation)
	check(err)
	strategy, err := retrieval.ParseScoringStrategy(c.Retrieval.Strategy)
	check(err)
	if _, err := core.ParseTermPolicy(c.Retrieval.TermPolicy); err != nil {
		check(fmt.Errorf("%w: retrieval.term_policy: %w", core.ErrInvalidConfig, err))
	}
	fields, err := core.ParseSearchFields(c.Retrieval.Fields)
	switch {
	case err != nil:
		check(fmt.Errorf("%w: retrieval.fields: %w", core.ErrInvalidConfig, err))
	case fields.Empty():
		check(fmt.Errorf("%w: retrieval.fields selects nothing", core.ErrInvalidConfig))
	}
	if c.Retrieval.CacheSize < 0 {
		check(fmt.Errorf("%w: retrieval.cache_size cannot be negative", core.ErrInvalidConfig))
	}
	if strategy.UsesSentiment() && c.Sentiment.Snapshot == "" && c.Sentiment.Store == "" {
		check(fmt.Errorf("%w: retrieval.strategy %s needs sentiment.snapshot or sentiment.store",
			core.ErrInvalidConfig, strategy))
	}
	_, err = expansion.ParseStrategy(c.Expansion.Strategy)
	check(err)
	if c.Expansion.Threshold < 0 || c.Expansion.Threshold > 1 {
		check(fmt.Errorf("%w: expansion.threshold must be in [0,1]", core.ErrInvalidConfig))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		check(err)
	}
	if err := c.AIConfig().Validate(); err != nil {
		check(fmt.Errorf("%w: %w", core.ErrInvalidConfig, err))
	}

	return errors.Join(errs...)
}

// AIConfig converts the ai section into an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithMaskingHost(c.AI.MaskingHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithMaskingModel(c.AI.MaskingModel),
		ai.WithToken(c.AI.Token),
		ai.WithRateLimit(c.AI.RequestsPerSecond, c.AI.Burst),
		ai.WithRetry(c.AI.MaxAttempts, c.AI.RetryDelay),
		ai.WithBreaker(c.AI.BreakerMinRequests, c.AI.BreakerFailureRatio, c.AI.BreakerOpenTimeout),
	)
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		name, def, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(name)
		if val == "" && hasDefault {
			val = def
		}
		return []byte(val)
	})
}
