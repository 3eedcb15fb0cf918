package ingestion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/poiesic/parcelsuggest/storage"
	"github.com/poiesic/parcelsuggest/storage/badger"
	"github.com/poiesic/parcelsuggest/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPairings = []core.ParcelPairing{
	{ParcelID: "1234567890", FullAddress: "123 Main St, Boston, MA 02108"},
	{ParcelID: "0987654321", FullAddress: "45 Elm Ave, Cambridge, MA 02139"},
}

// testSource implements source.PairingSource for testing
type testSource struct {
	payload []byte
	err     error
	calls   atomic.Int32
}

func (s *testSource) Fetch(ctx context.Context) ([]byte, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

func newTestSource(t *testing.T, pairings []core.ParcelPairing) *testSource {
	t.Helper()
	payload, err := source.EncodeSnapshot(pairings)
	require.NoError(t, err)
	return &testSource{payload: payload}
}

// readOnlyCache rejects writes
type readOnlyCache struct {
	storage.PairingCache
}

func (c readOnlyCache) Write(ctx context.Context, pairings []core.ParcelPairing) (*core.CachedPairingSet, error) {
	return nil, storage.ErrStorageClosed
}

// brokenCache fails every read
type brokenCache struct {
	storage.PairingCache
}

func (c brokenCache) Read(ctx context.Context) (*core.CachedPairingSet, error) {
	return nil, storage.ErrStorageUnavailable
}

// countingCache counts the calls that decode the stored record
type countingCache struct {
	storage.PairingCache
	reads    atomic.Int32
	validity atomic.Int32
}

func (c *countingCache) Read(ctx context.Context) (*core.CachedPairingSet, error) {
	c.reads.Add(1)
	return c.PairingCache.Read(ctx)
}

func (c *countingCache) IsValid(ctx context.Context) (bool, error) {
	c.validity.Add(1)
	return c.PairingCache.IsValid(ctx)
}

func newMemoryCache(t *testing.T, now func() time.Time) *memory.PairingCache {
	t.Helper()
	cache := memory.NewPairingCache(now)
	require.NoError(t, cache.Init(context.Background()))
	return cache
}

func TestNewPipeline(t *testing.T) {
	cache := newMemoryCache(t, nil)
	src := newTestSource(t, testPairings)

	t.Run("valid configuration", func(t *testing.T) {
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()
		assert.NotNil(t, p)
	})

	t.Run("with options", func(t *testing.T) {
		p, err := NewPipeline(cache, src, WithPoolSize(0), WithLogger(nil), WithDecompressor(nil))
		require.NoError(t, err)
		defer p.Release()
		assert.NotNil(t, p.decompressor)
	})

	t.Run("nil cache", func(t *testing.T) {
		_, err := NewPipeline(nil, src)
		assert.Equal(t, ErrCacheRequired, err)
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := NewPipeline(cache, nil)
		assert.Equal(t, ErrSourceRequired, err)
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("miss fetches and caches", func(t *testing.T) {
		cache := newMemoryCache(t, nil)
		src := newTestSource(t, testPairings)
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.False(t, result.FromCache)
		assert.Equal(t, testPairings, result.Pairings)
		assert.False(t, result.Timestamp.IsZero())

		set, err := cache.Read(ctx)
		require.NoError(t, err)
		require.NotNil(t, set)
		assert.Equal(t, testPairings, set.Pairings)

		again, err := p.Load(ctx)
		require.NoError(t, err)
		assert.True(t, again.FromCache)
		assert.Equal(t, testPairings, again.Pairings)
		assert.Equal(t, int32(1), src.calls.Load())
	})

	t.Run("stale year refetches", func(t *testing.T) {
		now := time.Date(2025, time.December, 31, 23, 59, 0, 0, time.UTC)
		clock := func() time.Time { return now }
		cache := newMemoryCache(t, clock)
		src := newTestSource(t, testPairings)
		p, err := NewPipeline(cache, src, WithClock(clock))
		require.NoError(t, err)
		defer p.Release()

		first, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2025, first.Year)

		now = time.Date(2026, time.January, 1, 0, 1, 0, 0, time.UTC)
		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.False(t, result.FromCache)
		assert.Equal(t, 2026, result.Year)
		assert.Equal(t, int32(2), src.calls.Load())

		set, err := cache.Read(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2026, set.Year)
	})

	t.Run("fetch failure", func(t *testing.T) {
		cache := newMemoryCache(t, nil)
		src := &testSource{err: errors.New("connection refused")}
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		_, err = p.Load(ctx)
		assert.ErrorIs(t, err, ErrFetchFailed)

		set, err := cache.Read(ctx)
		require.NoError(t, err)
		assert.Nil(t, set)
	})

	t.Run("malformed payload is a fetch failure", func(t *testing.T) {
		cache := newMemoryCache(t, nil)
		src := &testSource{payload: []byte("not base64!")}
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		_, err = p.Load(ctx)
		assert.ErrorIs(t, err, ErrFetchFailed)
		assert.ErrorIs(t, err, source.ErrMalformedPayload)
	})

	t.Run("write failure still returns data", func(t *testing.T) {
		cache := readOnlyCache{newMemoryCache(t, nil)}
		src := newTestSource(t, testPairings)
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, testPairings, result.Pairings)
		assert.True(t, result.Timestamp.IsZero())
	})

	t.Run("cache check failure falls through to fetch", func(t *testing.T) {
		cache := brokenCache{newMemoryCache(t, nil)}
		src := newTestSource(t, testPairings)
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, testPairings, result.Pairings)
	})

	t.Run("invalid pairings dropped", func(t *testing.T) {
		cache := newMemoryCache(t, nil)
		src := newTestSource(t, append([]core.ParcelPairing{{ParcelID: " ", FullAddress: "nowhere"}}, testPairings...))
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Dropped)
		assert.Equal(t, testPairings, result.Pairings)
	})

	t.Run("record decoded once per load", func(t *testing.T) {
		cache := &countingCache{PairingCache: newMemoryCache(t, nil)}
		p, err := NewPipeline(cache, newTestSource(t, testPairings))
		require.NoError(t, err)
		defer p.Release()

		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.False(t, result.FromCache)
		assert.False(t, result.Timestamp.IsZero())
		assert.Equal(t, int32(1), cache.reads.Load(), "miss reads once and takes the timestamp from the write")

		result, err = p.Load(ctx)
		require.NoError(t, err)
		assert.True(t, result.FromCache)
		assert.Equal(t, int32(2), cache.reads.Load())
		assert.Equal(t, int32(0), cache.validity.Load())
	})

	t.Run("badger cache", func(t *testing.T) {
		cache, err := badger.NewMemoryPairingCache(nil)
		require.NoError(t, err)
		defer cache.Close()

		src := newTestSource(t, testPairings)
		p, err := NewPipeline(cache, src)
		require.NoError(t, err)
		defer p.Release()

		_, err = p.Load(ctx)
		require.NoError(t, err)
		result, err := p.Load(ctx)
		require.NoError(t, err)
		assert.True(t, result.FromCache)
		assert.Equal(t, testPairings, result.Pairings)
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	cache := newMemoryCache(t, nil)
	src := newTestSource(t, testPairings)
	p, err := NewPipeline(cache, src)
	require.NoError(t, err)
	defer p.Release()

	_, err = p.Load(ctx)
	require.NoError(t, err)

	updated := append([]core.ParcelPairing{{ParcelID: "5555000011", FullAddress: "9 Beacon St, Boston, MA 02108"}}, testPairings...)
	fresh := newTestSource(t, updated)
	src.payload = fresh.payload

	result, err := p.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Equal(t, updated, result.Pairings)
	assert.Equal(t, int32(2), src.calls.Load())

	t.Run("failed refresh leaves cache empty", func(t *testing.T) {
		src.err = errors.New("offline")
		_, err := p.Refresh(ctx)
		assert.ErrorIs(t, err, ErrFetchFailed)

		set, err := cache.Read(ctx)
		require.NoError(t, err)
		assert.Nil(t, set)
	})
}

func TestLoadAsync(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		p, err := NewPipeline(newMemoryCache(t, nil), newTestSource(t, testPairings))
		require.NoError(t, err)
		defer p.Release()

		done := make(chan Result, 1)
		require.NoError(t, p.LoadAsync(ctx, func(r Result) { done <- r }))

		select {
		case r := <-done:
			require.NoError(t, r.Err)
			assert.Equal(t, testPairings, r.Pairings)
		case <-time.After(5 * time.Second):
			t.Fatal("load did not complete")
		}
	})

	t.Run("failure", func(t *testing.T) {
		p, err := NewPipeline(newMemoryCache(t, nil), &testSource{err: errors.New("boom")})
		require.NoError(t, err)
		defer p.Release()

		done := make(chan Result, 1)
		require.NoError(t, p.LoadAsync(ctx, func(r Result) { done <- r }))

		select {
		case r := <-done:
			assert.ErrorIs(t, r.Err, ErrFetchFailed)
			assert.Nil(t, r.Pairings)
		case <-time.After(5 * time.Second):
			t.Fatal("load did not complete")
		}
	})
}
