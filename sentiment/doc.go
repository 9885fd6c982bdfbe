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


// Package sentiment aggregates the classified review history of listings and
// scores listings against a requested mood.
//
// A Store is loaded once from a snapshot (JSON or a storage.ReviewRepository)
// and is read-only afterwards, so it is safe to share between concurrent
// searches without locking. Each listing keeps only its most recent reviews
// (see WithRetention).
//
// The Scorer combines a lexical score with the cosine similarity between the
// listing's aggregated sentiment vector and the requested tags:
//
//	final = lexical * cos(decayed(listing), requested)
//
// A request without tags, or a listing without history, leaves the lexical
// score untouched. The Scorer works either inline, as a per-document weighting
// inside a single index pass (Weighting), or as a separate pass over already
// retrieved results (Rerank).
package sentiment
