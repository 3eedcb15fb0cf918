package source

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/poiesic/parcelsuggest/core"
)

// DefaultMaxInflatedSize bounds how large a decompressed snapshot may grow.
const DefaultMaxInflatedSize = 256 << 20

// GzipDecompressor inflates gzip data.
type GzipDecompressor struct {
	// MaxSize caps the inflated size in bytes. Zero means DefaultMaxInflatedSize.
	MaxSize int64
}

var _ Decompressor = GzipDecompressor{}

// Decompress inflates a gzip stream.
func (g GzipDecompressor) Decompress(data []byte) ([]byte, error) {
	limit := g.MaxSize
	if limit <= 0 {
		limit = DefaultMaxInflatedSize
	}

	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrPayloadTooLarge, limit)
	}
	return out, nil
}

// DecodeSnapshot converts a payload into pairings:
// base64 -> binary -> inflate -> JSON -> validated pairings.
// Invalid pairings and repeated parcel IDs are dropped; dropped reports how many.
func DecodeSnapshot(payload []byte, dec Decompressor) (pairings []core.ParcelPairing, dropped int, err error) {
	if dec == nil {
		dec = GzipDecompressor{}
	}

	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return nil, 0, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}

	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, err := base64.StdEncoding.Decode(raw, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: base64: %w", ErrMalformedPayload, err)
	}

	inflated, err := dec.Decompress(raw[:n])
	if err != nil {
		return nil, 0, fmt.Errorf("%w: inflate: %w", ErrMalformedPayload, err)
	}

	var decoded []core.ParcelPairing
	if err := json.Unmarshal(inflated, &decoded); err != nil {
		return nil, 0, fmt.Errorf("%w: json: %w", ErrMalformedPayload, err)
	}

	pairings, dropped = core.DedupePairings(decoded)
	return pairings, dropped, nil
}

// EncodeSnapshot produces a payload DecodeSnapshot accepts.
func EncodeSnapshot(pairings []core.ParcelPairing) ([]byte, error) {
	if pairings == nil {
		pairings = []core.ParcelPairing{}
	}

	data, err := json.Marshal(pairings)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}
