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


// Package suggest turns a stream of keystrokes into a stream of suggestion lists.
//
// A Controller debounces input with a delay that adapts to the query length,
// runs the search through a scheduler.Scheduler, and publishes the result only
// if no newer input or clear arrived in the meantime. Every SetQuery and Clear
// advances a search generation; work captured under an older generation is
// discarded when it completes.
//
// Consumers either poll Snapshot or Subscribe to versioned snapshots, which are
// delivered on a dedicated goroutine in version order.
package suggest
