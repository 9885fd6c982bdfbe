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


package storage

import "errors"

var (
	// ErrNotFound is returned when a listing has no stored reviews.
	ErrNotFound = errors.New("no reviews stored")

	// ErrStorageClosed is returned by any operation after Close.
	ErrStorageClosed = errors.New("review store is closed")

	// ErrSerializationFailed wraps every encoding or decoding failure.
	ErrSerializationFailed = errors.New("review encoding failed")

	// ErrTruncatedData marks a stored record shorter than its header claims.
	ErrTruncatedData = errors.New("truncated review record")
)
