package memory

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingCache(t *testing.T) {
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	cache := NewPairingCache(func() time.Time { return now })
	ctx := context.Background()

	_, err := cache.Read(ctx)
	assert.ErrorIs(t, err, storage.ErrNotInitialized)

	require.NoError(t, cache.Init(ctx))

	valid, err := cache.IsValid(ctx)
	require.NoError(t, err)
	assert.False(t, valid)

	pairings := []core.ParcelPairing{{ParcelID: "1", FullAddress: "1 Main St"}}
	_, err = cache.Write(ctx, pairings)
	require.NoError(t, err)

	valid, err = cache.IsValid(ctx)
	require.NoError(t, err)
	assert.True(t, valid)

	now = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	valid, err = cache.IsValid(ctx)
	require.NoError(t, err)
	assert.False(t, valid)

	require.NoError(t, cache.Clear(ctx))
	set, err := cache.Read(ctx)
	require.NoError(t, err)
	assert.Nil(t, set)
}
