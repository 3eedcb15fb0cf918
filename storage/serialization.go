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

import (
	"fmt"

	"github.com/poiesic/parcelsuggest/core"
)

// RecordVersion is the schema version prefixed to every persisted pairing set.
const RecordVersion byte = 1

// MarshalPairingSet serializes a CachedPairingSet to bytes.
func MarshalPairingSet(set *core.CachedPairingSet) []byte {
	buf := make([]byte, 1+core.CachedPairingSetMUS.Size(*set))
	buf[0] = RecordVersion
	core.CachedPairingSetMUS.Marshal(*set, buf[1:])
	return buf
}

// UnmarshalPairingSet deserializes a CachedPairingSet from bytes.
func UnmarshalPairingSet(data []byte) (*core.CachedPairingSet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrSerializationFailed)
	}
	if data[0] != RecordVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, data[0])
	}
	set, _, err := core.CachedPairingSetMUS.Unmarshal(data[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if err := core.ValidatePairingSet(&set); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &set, nil
}
