package storage

import (
	"context"

	"github.com/poiesic/parcelsuggest/core"
)

// PairingCache persists the single pairing snapshot with year-based invalidation.
// Implementations must be thread-safe and support concurrent access.
//
// Init must complete before any other method is called; until then, every other
// method returns ErrNotInitialized.
type PairingCache interface {
	// Init opens the underlying store, creating it if absent.
	// Returns ErrStorageUnavailable if the store cannot be opened. Callers should
	// treat that as non-fatal and fall back to an in-memory cache.
	Init(ctx context.Context) error

	// IsValid reports whether a record exists and was written in the current
	// calendar year.
	IsValid(ctx context.Context) (bool, error)

	// Read returns the current pairing set, or nil if none is stored.
	Read(ctx context.Context) (*core.CachedPairingSet, error)

	// Write atomically replaces the stored record with a new set stamped with the
	// current time and year, and returns that set. The previous record is never
	// merged.
	Write(ctx context.Context, pairings []core.ParcelPairing) (*core.CachedPairingSet, error)

	// Clear deletes the stored record. Clearing an empty cache is not an error.
	Clear(ctx context.Context) error

	// Close releases the underlying store.
	Close() error
}
