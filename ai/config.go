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


package ai

import (
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// MaskingHost is the base URL for the model used to fill masked words.
	MaskingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "nomic-embed-text", "text-embedding-3-small"
	EmbeddingModel string

	// MaskingModel is the model identifier used to fill masked words.
	// Example: "qwen2.5:3b", "gpt-4o-mini"
	MaskingModel string

	// Token is the API token. Local OpenAI-compatible servers accept any value.
	Token string

	// RequestsPerSecond caps calls to each service. Zero disables the limit.
	RequestsPerSecond float64

	// Burst is the number of calls allowed above RequestsPerSecond at once.
	Burst int

	// MaxAttempts is the number of tries per call before giving up.
	MaxAttempts int

	// RetryDelay is the delay before the first retry; it doubles per attempt.
	RetryDelay time.Duration

	// BreakerMinRequests is the number of calls observed before the breaker
	// may open.
	BreakerMinRequests uint32

	// BreakerFailureRatio opens the breaker once this share of calls fail.
	BreakerFailureRatio float64

	// BreakerOpenTimeout is how long the breaker stays open.
	BreakerOpenTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithMaskingHost sets the masked-word service host URL.
func WithMaskingHost(host string) ConfigOption {
	return func(c *Config) {
		c.MaskingHost = host
	}
}

// WithHost sets both embedding and masking hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.MaskingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithMaskingModel sets the masked-word model identifier.
func WithMaskingModel(model string) ConfigOption {
	return func(c *Config) {
		c.MaskingModel = model
	}
}

// WithToken sets the API token.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithRateLimit caps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

// WithRetry sets the number of attempts and the first retry delay.
func WithRetry(maxAttempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = delay
	}
}

// WithBreaker configures the circuit breaker.
func WithBreaker(minRequests uint32, failureRatio float64, openTimeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.BreakerMinRequests = minRequests
		c.BreakerFailureRatio = failureRatio
		c.BreakerOpenTimeout = openTimeout
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both services use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:       defaultHost,
		MaskingHost:         defaultHost,
		EmbeddingModel:      "nomic-embed-text",
		MaskingModel:        "qwen2.5:3b",
		Token:               "none",
		RequestsPerSecond:   20,
		Burst:               10,
		MaxAttempts:         3,
		RetryDelay:          100 * time.Millisecond,
		BreakerMinRequests:  5,
		BreakerFailureRatio: 0.6,
		BreakerOpenTimeout:  30 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.MaskingHost = normalizeHost(c.MaskingHost)
	if c.Token == "" {
		c.Token = "none"
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch {
	case c.EmbeddingHost == "":
		return fmt.Errorf("%w: EmbeddingHost is required", ErrInvalidConfig)
	case c.MaskingHost == "":
		return fmt.Errorf("%w: MaskingHost is required", ErrInvalidConfig)
	case c.EmbeddingModel == "":
		return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
	case c.MaskingModel == "":
		return fmt.Errorf("%w: MaskingModel is required", ErrInvalidConfig)
	case c.RequestsPerSecond < 0:
		return fmt.Errorf("%w: RequestsPerSecond cannot be negative", ErrInvalidConfig)
	case c.RequestsPerSecond > 0 && c.Burst < 1:
		return fmt.Errorf("%w: Burst must be at least 1 when rate limiting", ErrInvalidConfig)
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: MaxAttempts must be at least 1", ErrInvalidConfig)
	case c.BreakerFailureRatio <= 0 || c.BreakerFailureRatio > 1:
		return fmt.Errorf("%w: BreakerFailureRatio must be in (0,1]", ErrInvalidConfig)
	}
	return nil
}
