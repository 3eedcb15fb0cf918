package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// CurrentRecordID is the fixed identifier of the single persisted pairing set.
const CurrentRecordID = "current"

// ParcelPairing associates a parcel identifier with its full street address.
// It is the unit of searchable data and is treated as an immutable value.
type ParcelPairing struct {
	ParcelID    string `json:"parcelId"`
	FullAddress string `json:"fullAddress"`
}

// Suggestion is a single autocomplete entry surfaced to consumers.
type Suggestion struct {
	ParcelID    string `json:"parcelId"`
	FullAddress string `json:"fullAddress"`
}

// SuggestionFrom projects a pairing into a suggestion.
func SuggestionFrom(p ParcelPairing) Suggestion {
	return Suggestion{ParcelID: p.ParcelID, FullAddress: p.FullAddress}
}

// CachedPairingSet is the persisted snapshot of all pairings.
// Exactly one exists per store, keyed by CurrentRecordID. It is never updated in
// place: a refresh overwrites it and an explicit refresh clears it.
type CachedPairingSet struct {
	ID        string
	Pairings  []ParcelPairing
	Timestamp time.Time // When the snapshot was written
	Year      int       // Calendar year the snapshot is valid for
}

// NewCachedPairingSet stamps pairings with the given time.
func NewCachedPairingSet(pairings []ParcelPairing, now time.Time) *CachedPairingSet {
	return &CachedPairingSet{
		ID:        CurrentRecordID,
		Pairings:  pairings,
		Timestamp: now.UTC(),
		Year:      now.Year(),
	}
}

// IsCurrent reports whether the set is still valid at now.
// Validity is by calendar year only, regardless of how recently the set was written.
func (s *CachedPairingSet) IsCurrent(now time.Time) bool {
	return s != nil && s.Year == now.Year()
}

// TimestampISO returns the write time formatted as ISO-8601.
func (s *CachedPairingSet) TimestampISO() string {
	return s.Timestamp.UTC().Format(time.RFC3339Nano)
}

// Fingerprint identifies a pairing snapshot by content.
type Fingerprint uint64

// FingerprintPairings hashes the ordered pairings with BLAKE2b.
// Identical snapshots always produce identical fingerprints.
func FingerprintPairings(pairings []ParcelPairing) Fingerprint {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	var sep = []byte{0}
	for _, p := range pairings {
		h.Write([]byte(p.ParcelID))
		h.Write(sep)
		h.Write([]byte(p.FullAddress))
		h.Write(sep)
	}
	sum := h.Sum(nil)
	return Fingerprint(binary.LittleEndian.Uint64(sum))
}
