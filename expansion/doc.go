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


// Package expansion rewrites a query into a longer query that also matches
// related wording.
//
// Three strategies share the Expander contract:
//
//   - NoExpansion returns the text unchanged
//   - ThesaurusExpansion proposes thesaurus synonyms for each word
//   - GenerativeExpansion masks each word and asks a MaskFiller for fillers
//
// Candidates are ranked by the cosine similarity between the embedding of the
// original query and the embedding of the query with the word substituted,
// and only candidates at or above a threshold survive. Output is plain query
// text: every word is followed by its accepted candidates, joined by the
// caller's connector. Quoted phrases, parentheses and the AND/OR/NOT
// operators pass through untouched, so the result parses exactly like the
// input.
//
// Expanders hold no per-call state and are safe for concurrent use. Pooled
// runs an Expander on a bounded ants worker pool and hands back the whole
// expansion or an error, never a partial one.
package expansion
