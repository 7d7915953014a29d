package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"profilescout/pkg/errors"
)

// Config holds the pacing parameters of one run
type Config struct {
	// Minimum interval between two consecutive requests
	BaseDelay time.Duration
	// Upper bound of the random extra delay drawn for every request
	Jitter time.Duration
	// Hard cap on requests per run. Zero or less means no cap.
	MaxRequests int
	// Requests allowed in any rolling hour. Zero disables the window.
	MaxPerHour int
}

// Controller gates every page fetch of a run. It owns the request count, the time of
// the last request and the rolling hour window; nothing else mutates them.
type Controller struct {
	cfg    Config
	clock  Clock
	rand   RandSource
	onWait func(time.Duration)

	mu           sync.Mutex
	lastRequest  time.Time
	requestCount int
	window       []time.Time
}

// Option customizes a Controller
type Option func(*Controller)

// WithClock injects the time source
func WithClock(c Clock) Option {
	return func(pc *Controller) { pc.clock = c }
}

// WithRand injects the jitter source
func WithRand(r RandSource) Option {
	return func(pc *Controller) { pc.rand = r }
}

// WithWaitObserver registers a callback that receives every wait duration
func WithWaitObserver(fn func(time.Duration)) Option {
	return func(pc *Controller) { pc.onWait = fn }
}

// New creates a Controller for one run
func New(cfg Config, opts ...Option) *Controller {
	pc := &Controller{
		cfg:   cfg,
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(pc)
	}
	if pc.rand == nil {
		pc.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return pc
}

// AwaitTurn blocks until the next request may be issued. It sleeps for whatever is
// missing from base delay plus a fresh jitter since the last request, and for the
// rolling hour window when one is configured. Once the run's request cap has been
// reached it fails immediately with ErrRateBudgetExhausted.
func (pc *Controller) AwaitTurn(ctx context.Context) error {
	pc.mu.Lock()
	if pc.cfg.MaxRequests > 0 && pc.requestCount >= pc.cfg.MaxRequests {
		count := pc.requestCount
		pc.mu.Unlock()
		return errors.New(errors.ErrorTypeRateBudgetExhausted, "%d of %d requests used", count, pc.cfg.MaxRequests)
	}

	now := pc.clock.Now()
	wait := pc.intervalDeficit(now)
	if w := pc.windowDeficit(now); w > wait {
		wait = w
	}
	pc.mu.Unlock()

	if wait > 0 {
		if err := pc.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	if pc.onWait != nil {
		pc.onWait(wait)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.lastRequest = pc.clock.Now()
	pc.requestCount++
	if pc.cfg.MaxPerHour > 0 {
		pc.window = append(pc.window, pc.lastRequest)
	}
	return nil
}

// intervalDeficit draws the jitter for this turn and returns how much of
// base delay plus jitter has not elapsed yet. Caller holds mu.
func (pc *Controller) intervalDeficit(now time.Time) time.Duration {
	interval := pc.cfg.BaseDelay
	if pc.cfg.Jitter > 0 {
		interval += time.Duration(pc.rand.Float64() * float64(pc.cfg.Jitter))
	}
	if pc.lastRequest.IsZero() {
		return 0
	}
	if elapsed := now.Sub(pc.lastRequest); elapsed < interval {
		return interval - elapsed
	}
	return 0
}

// windowDeficit drops window entries older than an hour and returns the wait until
// the oldest remaining entry leaves the window when the window is full. Caller holds mu.
func (pc *Controller) windowDeficit(now time.Time) time.Duration {
	if pc.cfg.MaxPerHour <= 0 {
		return 0
	}
	cutoff := now.Add(-time.Hour)
	i := 0
	for i < len(pc.window) && !pc.window[i].After(cutoff) {
		i++
	}
	pc.window = pc.window[i:]

	if len(pc.window) < pc.cfg.MaxPerHour {
		return 0
	}
	oldest := pc.window[len(pc.window)-pc.cfg.MaxPerHour]
	return oldest.Add(time.Hour).Sub(now)
}

// RequestCount returns the number of turns granted so far
func (pc *Controller) RequestCount() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.requestCount
}

// remaining returns how many requests are left in the run budget, or -1 without a cap
func (pc *Controller) remaining() int {
	if pc.cfg.MaxRequests <= 0 {
		return -1
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.cfg.MaxRequests - pc.requestCount
}

// lastGranted returns when the last turn was granted
func (pc *Controller) lastGranted() time.Time {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return pc.lastRequest
}
