package server

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/parcelsuggest"
	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/scheduler"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/poiesic/parcelsuggest/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

var testPairings = []core.ParcelPairing{
	{ParcelID: "1234567890", FullAddress: "123 Main St, Boston, MA 02108"},
	{ParcelID: "0987654321", FullAddress: "45 Elm Ave, Cambridge, MA 02139"},
}

func newLoadedEngine(t *testing.T) *parcelsuggest.Engine {
	t.Helper()
	payload, err := source.EncodeSnapshot(testPairings)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pairings.b64")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	e, err := parcelsuggest.NewEngine(source.FileSource{Path: path}, parcelsuggest.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	require.NoError(t, e.Load(context.Background()))
	return e
}

// client drives a server over pipes
type client struct {
	enc    *msgpack.Encoder
	dec    *msgpack.Decoder
	input  *io.PipeWriter
	served chan error
}

func startServer(t *testing.T, engine Engine) *client {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	srv, err := NewServer(engine, reqR, respW, WithLogger(nil), WithControllerOptions(
		suggest.WithScheduler(scheduler.Immediate{}),
		suggest.WithDebounce(30*time.Millisecond),
	))
	require.NoError(t, err)

	c := &client{
		enc:    msgpack.NewEncoder(reqW),
		dec:    msgpack.NewDecoder(respR),
		input:  reqW,
		served: make(chan error, 1),
	}
	go func() {
		c.served <- srv.Serve(context.Background())
		respW.Close()
	}()
	t.Cleanup(func() { reqW.Close() })

	var ready map[string]string
	require.NoError(t, c.dec.Decode(&ready))
	assert.Equal(t, "ready", ready["status"])
	return c
}

func (c *client) send(t *testing.T, req Request) {
	t.Helper()
	require.NoError(t, c.enc.Encode(req))
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil, nil)
	assert.Equal(t, ErrEngineRequired, err)
}

func TestServeQuery(t *testing.T) {
	c := startServer(t, newLoadedEngine(t))

	c.send(t, Request{ID: "q1", Query: "1234567890"})
	var resp SuggestResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, "q1", resp.ID)
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, Suggestion{ParcelID: "1234567890", FullAddress: "123 Main St, Boston, MA 02108"}, resp.Suggestions[0])
	assert.Equal(t, len(resp.Suggestions), resp.Count)
	assert.Empty(t, resp.Error)
	assert.False(t, resp.Loading)
}

// gatedSource serves a snapshot once release is closed.
type gatedSource struct {
	payload []byte
	release chan struct{}
}

func (g *gatedSource) Fetch(ctx context.Context) ([]byte, error) {
	select {
	case <-g.release:
		return g.payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestServeQueryDuringColdStart(t *testing.T) {
	payload, err := source.EncodeSnapshot(testPairings)
	require.NoError(t, err)
	src := &gatedSource{payload: payload, release: make(chan struct{})}

	e, err := parcelsuggest.NewEngine(src, parcelsuggest.WithInMemory())
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })

	c := startServer(t, e)
	c.send(t, Request{ID: "q1", Query: "123"})

	// Let the first search settle against the empty index.
	require.Eventually(t, e.IsLoading, 5*time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	close(src.release)

	var resp SuggestResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, "q1", resp.ID)
	assert.Contains(t, resp.Suggestions, Suggestion{ParcelID: "1234567890", FullAddress: "123 Main St, Boston, MA 02108"})
	assert.False(t, resp.Loading)
	assert.Empty(t, resp.Error)
}

func TestServeAnswersOnlyLatestQuery(t *testing.T) {
	c := startServer(t, newLoadedEngine(t))

	c.send(t, Request{ID: "q1", Query: "1"})
	c.send(t, Request{ID: "q2", Query: "12"})
	c.send(t, Request{ID: "q3", Query: "123"})

	var resp SuggestResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, "q3", resp.ID)
	assert.Contains(t, resp.Suggestions, Suggestion{ParcelID: "1234567890", FullAddress: "123 Main St, Boston, MA 02108"})

	// The next message is the status reply, not a late answer for q1 or q2.
	c.send(t, Request{ID: "s1", Action: "status"})
	var status StatusResponse
	require.NoError(t, c.dec.Decode(&status))
	assert.Equal(t, "s1", status.ID)
}

func TestServeShortQuery(t *testing.T) {
	c := startServer(t, newLoadedEngine(t))

	c.send(t, Request{ID: "q1", Query: "   "})
	var resp SuggestResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, "q1", resp.ID)
	assert.Empty(t, resp.Suggestions)
}

func TestServeActions(t *testing.T) {
	c := startServer(t, newLoadedEngine(t))

	t.Run("status", func(t *testing.T) {
		c.send(t, Request{ID: "s1", Action: "status"})
		var resp StatusResponse
		require.NoError(t, c.dec.Decode(&resp))
		assert.Equal(t, "s1", resp.ID)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, len(testPairings), resp.Pairings)
		assert.Empty(t, resp.Error)
	})

	t.Run("clear", func(t *testing.T) {
		c.send(t, Request{ID: "c1", Action: "clear"})
		var resp SuggestResponse
		require.NoError(t, c.dec.Decode(&resp))
		assert.Equal(t, "c1", resp.ID)
		assert.Empty(t, resp.Suggestions)
		assert.Zero(t, resp.Count)
	})

	t.Run("refresh", func(t *testing.T) {
		c.send(t, Request{ID: "r1", Action: "refresh"})
		var resp StatusResponse
		require.NoError(t, c.dec.Decode(&resp))
		assert.Equal(t, "r1", resp.ID)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, len(testPairings), resp.Pairings)
	})

	t.Run("unknown action", func(t *testing.T) {
		c.send(t, Request{ID: "x1", Action: "explode"})
		var resp ErrorResponse
		require.NoError(t, c.dec.Decode(&resp))
		assert.Equal(t, "x1", resp.ID)
		assert.Equal(t, 400, resp.Code)
		assert.Contains(t, resp.Error, "explode")
	})

	t.Run("query without id", func(t *testing.T) {
		c.send(t, Request{Query: "main"})
		var resp ErrorResponse
		require.NoError(t, c.dec.Decode(&resp))
		assert.Equal(t, 400, resp.Code)
	})

	t.Run("end of input", func(t *testing.T) {
		require.NoError(t, c.input.Close())
		select {
		case err := <-c.served:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})
}

func TestServeInvalidRequest(t *testing.T) {
	c := startServer(t, newLoadedEngine(t))

	_, err := c.input.Write([]byte{0xc1})
	require.NoError(t, err)

	var resp ErrorResponse
	require.NoError(t, c.dec.Decode(&resp))
	assert.Equal(t, 400, resp.Code)

	select {
	case err := <-c.served:
		assert.ErrorIs(t, err, ErrInvalidRequest)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
