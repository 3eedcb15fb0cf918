package source

import (
	"context"
	"os"
)

// FileSource reads the snapshot payload from a local file, as written by
// `parcelsuggest snapshot build`.
type FileSource struct {
	Path string
}

var _ PairingSource = FileSource{}

// Fetch reads the whole file.
func (f FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	return unwrapPayload(data)
}
