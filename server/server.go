package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/suggest"
	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrEngineRequired is returned when a server is created without an engine.
	ErrEngineRequired = errors.New("engine required")

	// ErrInvalidRequest is returned when the request stream cannot be decoded.
	ErrInvalidRequest = errors.New("invalid request")
)

// Engine is what the server needs from the suggestion engine.
type Engine interface {
	NewController(opts ...suggest.Option) (*suggest.Controller, error)
	Refresh(ctx context.Context) error
	Pairings() []core.ParcelPairing
	IsLoading() bool
	Err() error
}

// Server handles msgpack IPC for one client.
type Server struct {
	engine     Engine
	reader     io.Reader
	writer     io.Writer
	ctrlOpts   []suggest.Option
	logger     *slog.Logger
	controller *suggest.Controller

	writeMu sync.Mutex
	encoder *msgpack.Encoder

	mu      sync.Mutex
	pending *pendingQuery
}

// pendingQuery is the latest unanswered query.
type pendingQuery struct {
	id    string
	query string
	start time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithControllerOptions passes options to the suggestion controller.
func WithControllerOptions(opts ...suggest.Option) Option {
	return func(s *Server) {
		s.ctrlOpts = append(s.ctrlOpts, opts...)
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// NewServer creates a server reading requests from r and writing responses to w.
func NewServer(engine Engine, r io.Reader, w io.Writer, opts ...Option) (*Server, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	s := &Server{
		engine:  engine,
		reader:  bufio.NewReader(r),
		writer:  w,
		logger:  slog.Default(),
		encoder: msgpack.NewEncoder(w),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Serve processes requests until the input ends or ctx is cancelled.
// Cancellation is observed between requests.
func (s *Server) Serve(ctx context.Context) error {
	controller, err := s.engine.NewController(s.ctrlOpts...)
	if err != nil {
		return err
	}
	s.controller = controller
	defer controller.Close()

	unsubscribe := controller.Subscribe(s.onSnapshot)
	defer unsubscribe()

	// The input is focused for as long as the client is attached
	controller.Focus()

	s.logger.Debug("starting server")
	s.send(map[string]string{"status": "ready"})

	dec := msgpack.NewDecoder(s.reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.sendError("", "invalid msgpack request", 400)
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		s.handle(ctx, req)
	}
}

func (s *Server) handle(ctx context.Context, req Request) {
	switch req.Action {
	case "":
		s.handleQuery(req)
	case "clear":
		s.handleClear(req)
	case "status":
		s.sendStatus(req.ID, "ok")
	case "refresh":
		if err := s.engine.Refresh(ctx); err != nil {
			s.logger.Warn("refresh failed", "err", err)
			s.sendStatus(req.ID, "failed")
			return
		}
		s.sendStatus(req.ID, "ok")
	default:
		s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleQuery(req Request) {
	if req.ID == "" {
		s.sendError("", "missing 'id'", 400)
		return
	}

	s.mu.Lock()
	s.pending = &pendingQuery{id: req.ID, query: req.Query, start: time.Now()}
	s.mu.Unlock()

	s.controller.SetQuery(req.Query)

	// Queries below the minimum length settle synchronously with no search
	if snap := s.controller.Snapshot(); snap.State == suggest.StateIdle {
		s.answer(snap)
	}
}

func (s *Server) handleClear(req Request) {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()

	s.controller.Clear()
	snap := s.controller.Snapshot()
	s.send(SuggestResponse{
		ID:          req.ID,
		Suggestions: []Suggestion{},
		Loading:     snap.IsLoading,
		Error:       snap.Error,
	})
}

// onSnapshot answers the pending query once its search has finished. An empty
// result settled while pairings are still loading is not final: the query is
// searched again when the load completes.
func (s *Server) onSnapshot(snap suggest.Snapshot) {
	switch snap.State {
	case suggest.StateSettled:
		if snap.IsLoading && len(snap.Suggestions) == 0 {
			return
		}
	case suggest.StateErrored:
	default:
		return
	}
	s.answer(snap)
}

func (s *Server) answer(snap suggest.Snapshot) {
	s.mu.Lock()
	p := s.pending
	if p == nil || p.query != snap.Query {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	suggestions := make([]Suggestion, len(snap.Suggestions))
	for i, sg := range snap.Suggestions {
		suggestions[i] = Suggestion{ParcelID: sg.ParcelID, FullAddress: sg.FullAddress}
	}
	s.send(SuggestResponse{
		ID:          p.id,
		Suggestions: suggestions,
		Count:       len(suggestions),
		TimeTaken:   time.Since(p.start).Microseconds(),
		Loading:     snap.IsLoading,
		Error:       snap.Error,
	})
}

func (s *Server) sendStatus(id, status string) {
	resp := StatusResponse{
		ID:       id,
		Status:   status,
		Pairings: len(s.engine.Pairings()),
		Loading:  s.engine.IsLoading(),
	}
	if s.engine.Err() != nil {
		resp.Error = suggest.ErrorText
	}
	s.send(resp)
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

// send encodes one response. Writes from the reader loop and the snapshot
// goroutine are serialized.
func (s *Server) send(response any) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.encoder.Encode(response); err != nil {
		s.logger.Error("error writing response", "err", err)
	}
}
