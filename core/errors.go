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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidPairing indicates a ParcelPairing failed validation.
	ErrInvalidPairing = errors.New("invalid parcel pairing")

	// ErrEmptyParcelID indicates the ParcelID field is empty.
	ErrEmptyParcelID = errors.New("parcel id cannot be empty")

	// ErrInvalidPairingSet indicates a CachedPairingSet failed validation.
	ErrInvalidPairingSet = errors.New("invalid pairing set")

	// ErrUnexpectedRecordID indicates a pairing set carries an id other than CurrentRecordID.
	ErrUnexpectedRecordID = errors.New("unexpected record id")
)
