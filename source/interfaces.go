package source

import (
	"context"

	"github.com/poiesic/parcelsuggest/core"
)

// PairingSource fetches the encoded snapshot payload.
// The payload is returned undecoded; see DecodeSnapshot.
type PairingSource interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Decompressor inflates the binary body of a snapshot payload.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// PairingReader reads pairings straight from authoritative parcel data.
type PairingReader interface {
	ReadPairings(ctx context.Context) ([]core.ParcelPairing, error)
}
