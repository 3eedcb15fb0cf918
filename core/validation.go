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

import (
	"fmt"
	"strings"
)

// ValidatePairing validates a ParcelPairing according to domain rules.
//
// Validation rules:
//   - ParcelID must not be empty or whitespace
//
// NOT validated:
//   - FullAddress (free text; some parcels have no situs address)
//   - Uniqueness of ParcelID (checked per snapshot, see DedupePairings)
func ValidatePairing(p ParcelPairing) error {
	if strings.TrimSpace(p.ParcelID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPairing, ErrEmptyParcelID)
	}
	return nil
}

// ValidatePairingSet validates a CachedPairingSet read back from storage.
func ValidatePairingSet(set *CachedPairingSet) error {
	if set == nil {
		return fmt.Errorf("%w: set is nil", ErrInvalidPairingSet)
	}
	if set.ID != CurrentRecordID {
		return fmt.Errorf("%w: %w: %q", ErrInvalidPairingSet, ErrUnexpectedRecordID, set.ID)
	}
	if set.Year <= 0 {
		return fmt.Errorf("%w: year %d", ErrInvalidPairingSet, set.Year)
	}
	return nil
}

// DedupePairings drops invalid pairings and repeated parcel IDs, keeping the first
// occurrence. It returns the kept pairings and the number dropped.
func DedupePairings(pairings []ParcelPairing) ([]ParcelPairing, int) {
	seen := make(map[string]struct{}, len(pairings))
	kept := make([]ParcelPairing, 0, len(pairings))
	for _, p := range pairings {
		if ValidatePairing(p) != nil {
			continue
		}
		if _, dup := seen[p.ParcelID]; dup {
			continue
		}
		seen[p.ParcelID] = struct{}{}
		kept = append(kept, p)
	}
	return kept, len(pairings) - len(kept)
}
