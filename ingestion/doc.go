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


// Package ingestion loads the pairing snapshot, preferring the local cache.
//
// The Pipeline type runs the load workflow:
//   - Checking whether the cached snapshot is valid for the current year
//   - Fetching and decoding a fresh snapshot on a miss
//   - Writing the fresh snapshot back to the cache
//
// Asynchronous loads run on a worker pool. A failed cache write is logged and
// does not fail the load: the fetched data is still returned.
package ingestion
