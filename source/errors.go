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


package source

import "errors"

var (
	// ErrMalformedPayload indicates a snapshot payload could not be decoded.
	ErrMalformedPayload = errors.New("malformed snapshot payload")

	// ErrUnexpectedStatus indicates the snapshot endpoint returned a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrPayloadTooLarge indicates a snapshot inflated past the configured limit.
	ErrPayloadTooLarge = errors.New("snapshot payload too large")

	// ErrFieldNotFound indicates a configured attribute field does not exist.
	ErrFieldNotFound = errors.New("field not found")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrURLRequired is returned when an HTTP source has no URL.
	ErrURLRequired = errors.New("snapshot url required")

	// ErrDatabaseRequired is returned when an Oracle reader has no database handle.
	ErrDatabaseRequired = errors.New("database required")
)
