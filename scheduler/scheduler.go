package scheduler

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
)

// DefaultFrameInterval is the tick used by the Frame strategy.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler defers low-priority work.
type Scheduler interface {
	// ScheduleLowPriority arranges for work to run later and returns a handle
	// that can prevent it from running.
	ScheduleLowPriority(work func()) Handle

	// Name identifies the strategy.
	Name() string

	// Release frees any background resources. Work scheduled afterwards is dropped.
	Release()
}

// Handle cancels scheduled work that has not started yet.
type Handle interface {
	Cancel()
}

// Capabilities describe the runtime the scheduler serves.
type Capabilities struct {
	IdleAvailable bool // A background worker may be used
	Mobile        bool // Constrained device; prefer frame ticks
}

// Option configures a Scheduler created by New.
type Option func(*config)

type config struct {
	frameInterval time.Duration
	logger        *slog.Logger
}

// WithFrameInterval sets the Frame tick. Default is 16ms.
func WithFrameInterval(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.frameInterval = d
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// New picks Idle when a background worker is available and the device is not
// mobile, otherwise Frame.
func New(caps Capabilities, opts ...Option) (Scheduler, error) {
	cfg := &config{frameInterval: DefaultFrameInterval, logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}

	if caps.IdleAvailable && !caps.Mobile {
		return NewIdle(cfg.logger)
	}
	return NewFrame(cfg.frameInterval), nil
}

// task is the handle shared by all strategies.
type task struct {
	cancelled atomic.Bool
	timer     *time.Timer
}

func (t *task) Cancel() {
	t.cancelled.Store(true)
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *task) run(work func()) {
	if t.cancelled.Load() {
		return
	}
	work()
}

// Immediate runs work synchronously.
type Immediate struct{}

var _ Scheduler = Immediate{}

func (Immediate) ScheduleLowPriority(work func()) Handle {
	t := &task{}
	t.run(work)
	return t
}

func (Immediate) Name() string { return "immediate" }

func (Immediate) Release() {}

// Idle runs work on a single background worker, one unit at a time in
// submission order. Scheduling never blocks the caller.
type Idle struct {
	pool   *ants.Pool
	logger *slog.Logger

	mu      sync.Mutex
	pending []func()
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

var _ Scheduler = (*Idle)(nil)

// NewIdle starts the background worker.
func NewIdle(logger *slog.Logger) (*Idle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}
	s := &Idle{
		pool:   pool,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	if err := pool.Submit(s.drain); err != nil {
		pool.Release()
		return nil, err
	}
	return s, nil
}

func (s *Idle) ScheduleLowPriority(work func()) Handle {
	t := &task{}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Warn("dropping work scheduled after release")
		t.cancelled.Store(true)
		return t
	}
	s.pending = append(s.pending, func() { t.run(work) })
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return t
}

// drain is the worker loop.
func (s *Idle) drain() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for next := s.next(); next != nil; next = s.next() {
			next()
		}
	}
}

func (s *Idle) next() func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 || s.closed {
		return nil
	}
	next := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return next
}

func (s *Idle) Name() string { return "idle" }

func (s *Idle) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	close(s.done)
	s.pool.Release()
}

// Frame runs work on the next frame tick.
type Frame struct {
	interval time.Duration
	released atomic.Bool
}

var _ Scheduler = (*Frame)(nil)

// NewFrame creates a Frame scheduler ticking every interval.
func NewFrame(interval time.Duration) *Frame {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Frame{interval: interval}
}

func (s *Frame) ScheduleLowPriority(work func()) Handle {
	t := &task{}
	if s.released.Load() {
		t.cancelled.Store(true)
		return t
	}
	t.timer = time.AfterFunc(s.interval, func() { t.run(work) })
	return t
}

func (s *Frame) Name() string { return "frame" }

func (s *Frame) Release() {
	s.released.Store(true)
}
