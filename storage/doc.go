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


// Package storage provides the persistence abstraction for classified review
// histories.
//
// The sentiment snapshot is generated offline as JSON. Importing it into a
// storage backend gives a compact binary copy that loads faster than the JSON
// and can be updated listing by listing. The sentiment package reads either
// form; both produce the same in-memory store.
//
// # Constructor Return Type Pattern
//
// Public constructors return interfaces to keep callers decoupled from the
// backend:
//
//	repo, err := badger.NewReviewRepository(backend) // storage.ReviewRepository
//
// # Architecture
//
//   - Repository: transaction and lifecycle operations
//   - ReviewRepository: reviews keyed by (listing, review id)
//   - ManifestRepository: metadata describing the last imported snapshot
//
// Reviews are serialized with mus-go (see MarshalReview). Dates are stored
// as whole days; classifier scores keep full float64 precision.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/reviews", badger.WithCompression())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	repo, err := badger.NewReviewRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repo, backend, err := badger.NewMemoryReviewRepository()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
