// Package clock drives module handlers on a fixed period.
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Tick describes one firing of a clock.
type Tick struct {
	Clock string
	Seq   uint64
	At    time.Time
}

// Handler runs on every tick. Handlers of one clock never overlap.
type Handler func(ctx context.Context, t Tick)

// Middleware wraps a handler.
type Middleware func(Handler) Handler

// Clock fires subscribed handlers every interval. It owns no business logic.
type Clock struct {
	name     string
	interval time.Duration
	logger   *slog.Logger

	// fire serialises handler runs between the loop and manual Fire calls.
	fire sync.Mutex
	seq  uint64

	subMu    sync.RWMutex
	handlers []Handler
	mws      []Middleware

	life    sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}
}

// New creates a stopped clock. A non-positive interval panics.
func New(name string, interval time.Duration, logger *slog.Logger) *Clock {
	if interval <= 0 {
		panic(fmt.Sprintf("clock %s: interval must be positive, got %s", name, interval))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Clock{
		name:     name,
		interval: interval,
		logger:   logger.With("clock", name),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name returns the clock name.
func (c *Clock) Name() string { return c.name }

// Interval returns the tick period.
func (c *Clock) Interval() time.Duration { return c.interval }

// Use installs middleware for handlers subscribed afterwards.
func (c *Clock) Use(mw ...Middleware) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.mws = append(c.mws, mw...)
}

// Subscribe adds a handler. Handlers run in subscription order.
func (c *Clock) Subscribe(h Handler) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for i := len(c.mws) - 1; i >= 0; i-- {
		h = c.mws[i](h)
	}
	c.handlers = append(c.handlers, h)
}

// Start launches the tick loop. It returns immediately; the loop exits when
// ctx is cancelled or Stop is called. Starting twice or after Stop is a no-op.
func (c *Clock) Start(ctx context.Context) {
	c.life.Lock()
	defer c.life.Unlock()
	if c.started || c.stopped {
		return
	}
	c.started = true
	go c.run(ctx)
}

func (c *Clock) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Debug("clock started", "interval", c.interval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("clock cancelled")
			return
		case <-c.stop:
			c.logger.Debug("clock stopped")
			return
		case now := <-ticker.C:
			// time.Ticker drops ticks for slow receivers, so a long handler
			// never causes a backlog.
			c.Fire(ctx, now)
		}
	}
}

// Fire runs one tick synchronously. It returns false once the clock is stopped.
func (c *Clock) Fire(ctx context.Context, now time.Time) bool {
	c.fire.Lock()
	defer c.fire.Unlock()

	if c.isStopped() {
		return false
	}

	c.seq++
	t := Tick{Clock: c.name, Seq: c.seq, At: now}

	c.subMu.RLock()
	handlers := c.handlers
	c.subMu.RUnlock()

	for _, h := range handlers {
		c.safeCall(ctx, h, t)
	}
	return true
}

// safeCall keeps a failing handler from killing the loop and its siblings.
func (c *Clock) safeCall(ctx context.Context, h Handler, t Tick) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("tick handler panicked", "seq", t.Seq, "panic", fmt.Sprint(r))
		}
	}()
	h(ctx, t)
}

// Stop cancels future ticks. It is idempotent and does not wait for a tick
// in flight; use Done for that.
func (c *Clock) Stop() {
	c.life.Lock()
	defer c.life.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.stop)
	if !c.started {
		close(c.done)
	}
}

// Done is closed once the loop has exited, or on Stop if it never started.
func (c *Clock) Done() <-chan struct{} { return c.done }

// Seq returns the number of ticks fired so far.
func (c *Clock) Seq() uint64 {
	c.fire.Lock()
	defer c.fire.Unlock()
	return c.seq
}

func (c *Clock) isStopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
