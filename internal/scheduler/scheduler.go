// Package scheduler coalesces viewport changes into image region fetches.
//
// A Scheduler owns one debounce timer, tracks the most recently requested
// region and retains the last raster that was successfully fetched. Results
// are applied latest-wins: a response to anything but the most recently
// issued fetch is dropped, whatever order responses arrive in.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// DefaultDebounce is the quiet period before a settled viewport is fetched.
const DefaultDebounce = 150 * time.Millisecond

// ErrFetchFailed classifies every error delivered through Options.OnError.
var ErrFetchFailed = errors.New("fetch failed")

// Request identifies one image fetch: a source region and the output size.
type Request struct {
	Region  geometry.Region `json:"region"`
	Display geometry.Size   `json:"display"`
}

// Raster is a decoded image together with the request it answers.
type Raster struct {
	Image   image.Image
	Request Request
	Seq     uint64
	Fetched time.Time
}

// FetchError is a failed fetch for a request that was still current.
type FetchError struct {
	Request Request
	Err     error
}

func (e *FetchError) Error() string {
	r := e.Request.Region
	return fmt.Sprintf("fetch region %d,%d,%d,%d: %v", r.X, r.Y, r.W, r.H, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{ErrFetchFailed, e.Err} }

// Fetcher retrieves and decodes the raster for a request. Implementations
// should honor ctx cancellation but are not required to.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (image.Image, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (image.Image, error)

func (f FetcherFunc) Fetch(ctx context.Context, req Request) (image.Image, error) { return f(ctx, req) }

// Outcome classifies a finished fetch.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeStale
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeStale:
		return "stale"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event describes one finished fetch for observers such as trace recorders.
type Event struct {
	Seq     uint64
	Request Request
	Outcome Outcome
	Started time.Time
	Latency time.Duration
	Err     error
}

// Options configure a Scheduler. Callbacks run on the fetching goroutine,
// never while the scheduler lock is held.
type Options struct {
	Debounce time.Duration
	Clock    Clock
	Logger   *slog.Logger
	OnRaster func(Raster)
	OnError  func(error)
	Observer func(Event)
}

// Scheduler debounces requests and applies fetch results latest-wins.
type Scheduler struct {
	mu        sync.Mutex
	fetcher   Fetcher
	opts      Options
	timer     Timer
	timerGen  uint64
	pending   *Request
	latest    *Request
	latestSeq uint64
	cancel    context.CancelFunc
	inflight  uint64
	last      *Raster
	lastErr   *FetchError
	seq       uint64
	closed    bool
}

// New returns a Scheduler issuing fetches through fetcher.
func New(fetcher Fetcher, opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{fetcher: fetcher, opts: opts}
}

// Settle records req as the pending intent and restarts the debounce timer.
// When the timer fires the request is fetched unless it matches the request
// already in flight or last completed.
func (s *Scheduler) Settle(req Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	r := req
	s.pending = &r
	s.stopTimerLocked()
	gen := s.timerGen
	s.timer = s.opts.Clock.AfterFunc(s.opts.Debounce, func() { s.fire(gen) })
}

// Flush fetches req immediately, discarding any pending debounced intent.
// It serves first paint and explicit reset actions.
func (s *Scheduler) Flush(req Request) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.stopTimerLocked()
	s.pending = nil
	s.issueLocked(req)
	s.mu.Unlock()
}

// Last returns the most recent successfully fetched raster.
func (s *Scheduler) Last() (Raster, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Raster{}, false
	}
	return *s.last, true
}

// Err returns the failure of the most recent fetch that was not stale, or
// nil if it succeeded.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr == nil {
		return nil
	}
	return s.lastErr
}

// Loading reports whether a debounced intent or a fetch is outstanding.
func (s *Scheduler) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil || s.inflight != 0
}

// Close stops the timer and cancels the outstanding fetch. Results arriving
// afterwards are dropped.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.pending = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) stopTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.timerGen || s.pending == nil {
		return
	}
	req := *s.pending
	s.pending = nil
	s.timer = nil
	s.issueLocked(req)
}

func (s *Scheduler) issueLocked(req Request) {
	if s.current() != nil && *s.current() == req {
		s.opts.Logger.Debug("region unchanged, skipping fetch", "region", req.Region)
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.seq++
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	r := req
	s.latest = &r
	s.latestSeq = s.seq
	s.inflight = s.seq
	go s.run(ctx, s.seq, req)
}

// current is the request a new intent is compared against: the latest one
// issued, or the last completed one when the latest failed.
func (s *Scheduler) current() *Request {
	if s.latest != nil {
		return s.latest
	}
	if s.last != nil {
		return &s.last.Request
	}
	return nil
}

func (s *Scheduler) run(ctx context.Context, seq uint64, req Request) {
	started := s.opts.Clock.Now()
	img, err := s.fetcher.Fetch(ctx, req)
	if err == nil && img == nil {
		err = errors.New("fetcher returned no image")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ev := Event{Seq: seq, Request: req, Started: started, Latency: s.opts.Clock.Now().Sub(started), Err: err}
	if seq == s.inflight {
		s.inflight = 0
		s.cancel = nil
	}

	// Only the most recently issued fetch is current, even when an older
	// one asked for the same region.
	if s.latest == nil || seq != s.latestSeq {
		s.mu.Unlock()
		ev.Outcome = OutcomeStale
		s.opts.Logger.Debug("discarding stale raster", "seq", seq, "region", req.Region)
		s.observe(ev)
		return
	}

	if err != nil {
		fe := &FetchError{Request: req, Err: err}
		s.latest = nil
		s.lastErr = fe
		s.mu.Unlock()
		ev.Outcome = OutcomeFailed
		s.opts.Logger.Warn("region fetch failed", "seq", seq, "region", req.Region, "err", err)
		s.observe(ev)
		if s.opts.OnError != nil {
			s.opts.OnError(fe)
		}
		return
	}

	raster := Raster{Image: img, Request: req, Seq: seq, Fetched: s.opts.Clock.Now()}
	s.last = &raster
	s.lastErr = nil
	s.mu.Unlock()
	ev.Outcome = OutcomeApplied
	s.observe(ev)
	if s.opts.OnRaster != nil {
		s.opts.OnRaster(raster)
	}
}

func (s *Scheduler) observe(ev Event) {
	if s.opts.Observer != nil {
		s.opts.Observer(ev)
	}
}
