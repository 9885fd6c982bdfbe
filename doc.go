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


// Package placerank ranks property listings by lexical relevance and guest
// sentiment.
//
// An Engine ties together the listing index, the review history, the AI
// services used for query expansion and the retrieval models built from
// them:
//
//	engine, err := placerank.Open(config.Default())
//	if err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	model, err := engine.Model()
//	results, total, err := model.Search(ctx, core.Query{
//	    Text:          "quiet apartment near the park",
//	    SentimentTags: "joy not anger",
//	}, 10, 0)
package placerank
