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


// Package index provides the in-memory searchable structure over a pairing set.
//
// An Index is built once per snapshot and is read-only afterwards, so any number
// of goroutines may search it concurrently.
//
// Queries are normalized (trimmed, lower-cased, diacritics folded) and then
// answered by a tier chosen from their length:
//   - 1 character: whitespace-separated address tokens starting with it, or
//     parcel IDs containing it
//   - 2 characters: address or parcel ID containing the substring
//   - 3 or more: approximate matching scored in [0,1] (0 is perfect), filtered
//     by a length-dependent threshold
//
// Independently of the tier, pairings whose parcel ID or address equals the
// query exactly are promoted to the front of the result list exactly once.
package index
