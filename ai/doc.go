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


// Package ai provides abstractions for the language-model services used by
// query expansion.
//
// # Design Principles
//
// The package is designed around three interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - MaskFiller: Proposes words for a masked position in a sentence
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types to enforce abstraction. Test utility constructors
// (mock.NewMockEmbedder, mock.NewMockMaskFiller) return CONCRETE types so
// tests can inject behavior and assert on call counts.
//
// # Resilience
//
// NewGuardedProvider wraps any provider with a token-bucket rate limiter,
// retries with exponential backoff and one circuit breaker per service.
// Every failure that leaves the guard wraps core.ErrEmbeddingServiceUnavailable
// so callers can fall back to the unexpanded query with a single errors.Is.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	guarded, err := ai.NewGuardedProvider(provider, config)
//	defer guarded.Close()
//
//	vector, err := guarded.Embedder().EmbedText(ctx, "sunny studio")
package ai
