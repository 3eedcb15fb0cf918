package suggest

import (
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/scheduler"
)

// ErrBackendRequired is returned when a controller is created without a backend.
var ErrBackendRequired = errors.New("suggestion backend required")

// immediateMaxLength is the longest query searched directly on the timer
// goroutine instead of through the scheduler.
const immediateMaxLength = 2

// Backend is the data side of a controller.
type Backend interface {
	// Search returns suggestions for a query. It must be safe for concurrent use.
	Search(query string) []core.Suggestion

	// IsLoading reports whether pairing data is being loaded.
	IsLoading() bool

	// Err returns the most recent load failure, or nil.
	Err() error

	// EnsureLoaded starts a load if no current data is held and none is in
	// progress. It must not block.
	EnsureLoaded()

	// OnReady registers fn to run after every load attempt finishes.
	// The returned function unregisters it.
	OnReady(fn func()) (cancel func())
}

// Controller manages one input's query session.
type Controller struct {
	backend        Backend
	scheduler      scheduler.Scheduler
	ownsScheduler  bool
	debounce       time.Duration
	minQueryLength int
	mobile         bool
	logger         *slog.Logger

	mu             sync.Mutex
	rawQuery       string
	debouncedQuery string
	searchID       uint64
	state          State
	suggestions    []core.Suggestion
	focused        bool
	timer          *time.Timer
	handle         scheduler.Handle
	closed         bool

	version     uint64
	delivered   uint64
	pending     *Snapshot
	subscribers map[int]func(Snapshot)
	nextSub     int
	wake        chan struct{}
	done        chan struct{}

	unready func()
}

// Option configures a Controller.
type Option func(*Controller)

// WithDebounce sets the debounce for long queries. Default is 300ms.
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithMinQueryLength sets the shortest trimmed query that triggers a search.
// Default is 1.
func WithMinQueryLength(n int) Option {
	return func(c *Controller) {
		if n >= 1 {
			c.minQueryLength = n
		}
	}
}

// WithMobile stretches debounce delays for constrained devices.
func WithMobile(mobile bool) Option {
	return func(c *Controller) {
		c.mobile = mobile
	}
}

// WithScheduler sets the scheduler for queries longer than two runes.
// The caller keeps ownership. By default the controller creates one from its
// mobile setting and releases it on Close.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewController creates a controller over backend.
func NewController(backend Backend, opts ...Option) (*Controller, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}

	c := &Controller{
		backend:        backend,
		debounce:       DefaultDebounce,
		minQueryLength: 1,
		logger:         slog.Default(),
		suggestions:    []core.Suggestion{},
		subscribers:    make(map[int]func(Snapshot)),
		wake:           make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.scheduler == nil {
		s, err := scheduler.New(scheduler.Capabilities{IdleAvailable: true, Mobile: c.mobile},
			scheduler.WithLogger(c.logger))
		if err != nil {
			return nil, err
		}
		c.scheduler = s
		c.ownsScheduler = true
	}

	c.unready = backend.OnReady(c.backendReady)
	go c.deliver()

	return c, nil
}

// SetQuery records new input. It invalidates any outstanding search, then
// either clears suggestions (query too short) or restarts the debounce timer.
func (c *Controller) SetQuery(value string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	c.searchID++
	c.rawQuery = value
	c.stopPendingLocked()

	trimmed := strings.TrimSpace(value)
	n := utf8.RuneCountInString(trimmed)
	if n < c.minQueryLength {
		c.debouncedQuery = ""
		c.suggestions = []core.Suggestion{}
		c.state = StateIdle
		c.publishLocked()
		c.mu.Unlock()
		return
	}

	id := c.searchID
	delay := AdaptiveDelay(n, c.debounce, c.mobile)
	c.state = StateDebouncing
	c.timer = time.AfterFunc(delay, func() { c.fire(id, trimmed) })
	c.publishLocked()
	c.mu.Unlock()

	c.backend.EnsureLoaded()
}

// Clear cancels any pending search and empties the suggestions.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.searchID++
	c.stopPendingLocked()
	c.rawQuery = ""
	c.debouncedQuery = ""
	c.suggestions = []core.Suggestion{}
	c.state = StateCancelled
	c.publishLocked()
}

// Focus marks the input as focused; loading is only reported while focused.
func (c *Controller) Focus() {
	c.setFocused(true)
}

// Blur marks the input as unfocused.
func (c *Controller) Blur() {
	c.setFocused(false)
}

func (c *Controller) setFocused(focused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.focused == focused {
		return
	}
	c.focused = focused
	c.publishLocked()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe registers fn to receive snapshots. Snapshots arrive on a single
// goroutine in increasing version order; intermediate versions may be skipped
// when newer ones are already available. fn may call back into the controller.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Close stops timers, drops subscribers and releases an owned scheduler.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.searchID++
	c.stopPendingLocked()
	c.subscribers = map[int]func(Snapshot){}
	c.pending = nil
	close(c.done)
	c.mu.Unlock()

	if c.unready != nil {
		c.unready()
	}
	if c.ownsScheduler {
		c.scheduler.Release()
	}
}

// fire runs when the debounce timer elapses.
func (c *Controller) fire(id uint64, query string) {
	c.mu.Lock()
	if c.closed || id != c.searchID {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	c.debouncedQuery = query
	c.state = StateSearching
	c.publishLocked()
	c.mu.Unlock()

	if utf8.RuneCountInString(query) <= immediateMaxLength {
		c.run(id, query)
		return
	}

	h := c.scheduler.ScheduleLowPriority(func() { c.run(id, query) })

	c.mu.Lock()
	if id == c.searchID && c.state == StateSearching {
		c.handle = h
	} else {
		h.Cancel()
	}
	c.mu.Unlock()
}

// run searches and publishes the result if it is still wanted.
func (c *Controller) run(id uint64, query string) {
	results := c.backend.Search(query)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || id != c.searchID || query != c.debouncedQuery {
		c.logger.Debug("discarding stale suggestions", "query", query)
		return
	}

	c.handle = nil
	c.suggestions = results
	c.state = StateSettled
	if len(results) == 0 && c.backend.Err() != nil {
		c.state = StateErrored
	}
	c.publishLocked()
}

// backendReady re-runs the current query after a successful load and
// surfaces the error after a failed one.
func (c *Controller) backendReady() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.backend.Err() != nil {
		c.searchID++
		c.stopPendingLocked()
		c.suggestions = []core.Suggestion{}
		c.state = StateErrored
		c.publishLocked()
		c.mu.Unlock()
		return
	}
	query := c.rawQuery
	rerun := utf8.RuneCountInString(strings.TrimSpace(query)) >= c.minQueryLength
	if !rerun {
		c.publishLocked()
	}
	c.mu.Unlock()

	if rerun {
		c.SetQuery(query)
	}
}

func (c *Controller) stopPendingLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.handle != nil {
		c.handle.Cancel()
		c.handle = nil
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Version:     c.version,
		Query:       c.rawQuery,
		Suggestions: c.suggestions,
		IsLoading:   c.focused && (c.backend.IsLoading() || c.state == StateSearching),
		State:       c.state,
	}
	if c.backend.Err() != nil {
		s.Error = ErrorText
	}
	return s
}

// publishLocked records a new version and wakes the delivery goroutine.
func (c *Controller) publishLocked() {
	c.version++
	s := c.snapshotLocked()
	c.pending = &s
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// deliver hands snapshots to subscribers in version order.
func (c *Controller) deliver() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		c.mu.Lock()
		s := c.pending
		c.pending = nil
		if s == nil || s.Version <= c.delivered {
			c.mu.Unlock()
			continue
		}
		c.delivered = s.Version
		subs := make([]func(Snapshot), 0, len(c.subscribers))
		for _, fn := range c.subscribers {
			subs = append(subs, fn)
		}
		c.mu.Unlock()

		for _, fn := range subs {
			fn(*s)
		}
	}
}
