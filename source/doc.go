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


// Package source supplies pairing snapshots to the engine.
//
// A snapshot travels as a base64 string wrapping a gzip-compressed JSON array of
// {"parcelId", "fullAddress"} objects. PairingSource implementations fetch that
// payload (HTTPSource, FileSource); DecodeSnapshot turns it back into pairings
// using an injected Decompressor.
//
// Snapshots are produced offline by PairingReader implementations that read the
// authoritative parcel data directly:
//   - ShapefileReader: DBF attributes of a parcel shapefile
//   - OracleReader: a two-column query against an assessor database
//
// EncodeSnapshot writes the payload format those readers feed into.
package source
