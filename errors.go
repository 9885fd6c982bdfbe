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


package placerank

import "errors"

var (
	// ErrEngineClosed is returned by operations on a closed Engine.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrReviewStoreRequired is returned when an operation needs the badger
	// review store and none is configured.
	ErrReviewStoreRequired = errors.New("review store is not configured")

	// ErrUnknownVariant is returned for a model variant name that does not exist.
	ErrUnknownVariant = errors.New("unknown model variant")
)
