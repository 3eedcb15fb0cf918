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


// Package scheduler runs deferred work off the caller's path.
//
// A Scheduler exposes a single operation, ScheduleLowPriority, whose strategy is
// picked once from the runtime's capabilities:
//   - Immediate runs the work synchronously in the caller
//   - Idle hands the work to a single background worker
//   - Frame runs the work on the next frame tick
//
// Every scheduled unit returns a Handle. Cancelling a handle before its work
// starts guarantees the work never runs; cancelling after it started has no effect.
package scheduler
