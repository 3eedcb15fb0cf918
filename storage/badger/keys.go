package badger

import "github.com/poiesic/parcelsuggest/core"

// Key prefixes for different data types
const (
	pairingSetPrefix = "pairings"
)

// makePairingSetKey generates the key for a pairing set by record ID.
// Format: prefix:id
func makePairingSetKey(id string) []byte {
	prefix := pairingSetPrefix + ":"
	buf := make([]byte, len(prefix)+len(id))
	offset := copy(buf, prefix)
	copy(buf[offset:], id)
	return buf
}

// currentPairingSetKey is the key of the only pairing set the cache keeps.
var currentPairingSetKey = makePairingSetKey(core.CurrentRecordID)
