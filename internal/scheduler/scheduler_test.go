package scheduler

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fetchCall struct {
	req   Request
	at    time.Time
	reply chan fetchResult
}

type fetchResult struct {
	img image.Image
	err error
}

// gatedFetcher blocks every fetch until the test replies. By default it
// ignores cancellation so late responses can be exercised; with honorCtx it
// returns as soon as the fetch is cancelled, like the IIIF client does.
type gatedFetcher struct {
	clock    *manualClock
	calls    chan *fetchCall
	honorCtx bool
}

func newGatedFetcher(clock *manualClock) *gatedFetcher {
	return &gatedFetcher{clock: clock, calls: make(chan *fetchCall, 16)}
}

func (f *gatedFetcher) Fetch(ctx context.Context, req Request) (image.Image, error) {
	call := &fetchCall{req: req, at: f.clock.Now(), reply: make(chan fetchResult, 1)}
	f.calls <- call
	if f.honorCtx {
		select {
		case res := <-call.reply:
			return res.img, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	res := <-call.reply
	return res.img, res.err
}

func (f *gatedFetcher) next(t *testing.T) *fetchCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fetch")
		return nil
	}
}

func (f *gatedFetcher) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch for %+v", c.req.Region)
	case <-time.After(30 * time.Millisecond):
	}
}

type harness struct {
	clock   *manualClock
	fetcher *gatedFetcher
	sched   *Scheduler
	rasters chan Raster
	errs    chan error
	events  chan Event
}

func newHarness(debounce time.Duration) *harness {
	h := &harness{
		clock:   newManualClock(),
		rasters: make(chan Raster, 16),
		errs:    make(chan error, 16),
		events:  make(chan Event, 16),
	}
	h.fetcher = newGatedFetcher(h.clock)
	h.sched = New(h.fetcher, Options{
		Debounce: debounce,
		Clock:    h.clock,
		Logger:   discardLogger,
		OnRaster: func(r Raster) { h.rasters <- r },
		OnError:  func(err error) { h.errs <- err },
		Observer: func(ev Event) { h.events <- ev },
	})
	return h
}

func (h *harness) event(t *testing.T) Event {
	t.Helper()
	select {
	case ev := <-h.events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for fetch event")
		return Event{}
	}
}

func req(x int) Request {
	return Request{
		Region:  geometry.Region{X: x, Y: 0, W: 100, H: 100},
		Display: geometry.Size{W: 50, H: 50},
	}
}

func img() image.Image { return image.NewRGBA(image.Rect(0, 0, 1, 1)) }

func TestBurstProducesSingleDebouncedFetch(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	var lastCall time.Time
	for i := 0; i < 10; i++ {
		h.sched.Settle(req(i))
		lastCall = h.clock.Now()
		h.clock.Advance(5 * time.Millisecond)
	}

	h.clock.Advance(144 * time.Millisecond)
	h.fetcher.none(t)

	h.clock.Advance(time.Millisecond)
	call := h.fetcher.next(t)
	if call.req != req(9) {
		t.Errorf("Expected the last intent to be fetched, got %+v", call.req.Region)
	}
	delay := call.at.Sub(lastCall)
	if delay < 120*time.Millisecond || delay > 250*time.Millisecond {
		t.Errorf("Expected fetch 120-250ms after the last call, got %v", delay)
	}

	h.clock.Advance(time.Second)
	h.fetcher.none(t)
	call.reply <- fetchResult{img: img()}
	if r := <-h.rasters; r.Request != req(9) {
		t.Errorf("Expected raster for last intent, got %+v", r.Request.Region)
	}
}

func TestLatestRequestWins(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	h.sched.Flush(req(1))
	r1 := h.fetcher.next(t)

	h.sched.Settle(req(2))
	h.clock.Advance(150 * time.Millisecond)
	r2 := h.fetcher.next(t)

	r2.reply <- fetchResult{img: img()}
	if got := <-h.rasters; got.Request != req(2) {
		t.Fatalf("Expected R2 raster, got %+v", got.Request.Region)
	}
	if ev := h.event(t); ev.Outcome != OutcomeApplied {
		t.Fatalf("Expected applied outcome, got %v", ev.Outcome)
	}

	r1.reply <- fetchResult{img: img()}
	if ev := h.event(t); ev.Outcome != OutcomeStale || ev.Request != req(1) {
		t.Fatalf("Expected stale R1, got %v for %+v", ev.Outcome, ev.Request.Region)
	}

	select {
	case got := <-h.rasters:
		t.Fatalf("stale raster delivered: %+v", got.Request.Region)
	default:
	}
	last, ok := h.sched.Last()
	if !ok || last.Request != req(2) {
		t.Errorf("Expected last raster R2, got %+v (ok=%v)", last.Request.Region, ok)
	}
}

func TestStaleFailureIsSilent(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	h.sched.Flush(req(1))
	r1 := h.fetcher.next(t)
	h.sched.Flush(req(2))
	r2 := h.fetcher.next(t)

	r1.reply <- fetchResult{err: context.Canceled}
	if ev := h.event(t); ev.Outcome != OutcomeStale {
		t.Fatalf("Expected stale outcome, got %v", ev.Outcome)
	}
	select {
	case err := <-h.errs:
		t.Fatalf("stale failure surfaced: %v", err)
	default:
	}

	r2.reply <- fetchResult{img: img()}
	<-h.rasters
}

func TestRegionIssuedAgainAfterSupersedeIsApplied(t *testing.T) {
	h := newHarness(150 * time.Millisecond)
	h.fetcher.honorCtx = true

	h.sched.Flush(req(1))
	h.fetcher.next(t)
	h.sched.Flush(req(2))
	h.fetcher.next(t)
	h.sched.Flush(req(1))
	third := h.fetcher.next(t)
	if third.req != req(1) {
		t.Fatalf("Expected R1 to be fetched again, got %+v", third.req.Region)
	}

	// Both cancelled fetches return context.Canceled and must be stale.
	for i := 0; i < 2; i++ {
		if ev := h.event(t); ev.Outcome != OutcomeStale {
			t.Fatalf("Expected stale outcome for cancelled fetch, got %v (seq %d)", ev.Outcome, ev.Seq)
		}
	}
	select {
	case err := <-h.errs:
		t.Fatalf("cancelled fetch surfaced: %v", err)
	default:
	}

	third.reply <- fetchResult{img: img()}
	select {
	case r := <-h.rasters:
		if r.Request != req(1) || r.Seq != 3 {
			t.Errorf("Expected R1 raster with seq 3, got %+v seq %d", r.Request.Region, r.Seq)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected the latest R1 raster to be applied")
	}
	if err := h.sched.Err(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if h.sched.Loading() {
		t.Error("scheduler should be idle")
	}
}

func TestFailureKeepsLastRasterWithoutRetry(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	h.sched.Flush(req(1))
	h.fetcher.next(t).reply <- fetchResult{img: img()}
	<-h.rasters

	h.sched.Flush(req(2))
	h.fetcher.next(t).reply <- fetchResult{err: errors.New("boom")}

	err := <-h.errs
	if !errors.Is(err, ErrFetchFailed) {
		t.Errorf("Expected ErrFetchFailed, got %v", err)
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Request != req(2) {
		t.Errorf("Expected FetchError for R2, got %v", err)
	}
	last, ok := h.sched.Last()
	if !ok || last.Request != req(1) {
		t.Errorf("Expected R1 retained, got %+v", last.Request.Region)
	}
	if !errors.Is(h.sched.Err(), ErrFetchFailed) {
		t.Errorf("Expected Err to report the failure, got %v", h.sched.Err())
	}

	h.clock.Advance(time.Second)
	h.fetcher.none(t)

	// A fresh intent for the failed region is fetched again.
	h.sched.Settle(req(2))
	h.clock.Advance(150 * time.Millisecond)
	call := h.fetcher.next(t)
	if call.req != req(2) {
		t.Errorf("Expected refetch of R2, got %+v", call.req.Region)
	}
	call.reply <- fetchResult{img: img()}
	<-h.rasters
	if err := h.sched.Err(); err != nil {
		t.Errorf("Expected Err cleared after success, got %v", err)
	}
}

func TestUnchangedRegionIsNotRefetched(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	h.sched.Flush(req(1))
	call := h.fetcher.next(t)

	// Same region while in flight.
	h.sched.Settle(req(1))
	h.clock.Advance(200 * time.Millisecond)
	h.fetcher.none(t)

	call.reply <- fetchResult{img: img()}
	<-h.rasters

	// Same region after completion.
	h.sched.Settle(req(1))
	h.clock.Advance(200 * time.Millisecond)
	h.fetcher.none(t)

	if h.sched.Loading() {
		t.Error("scheduler should be idle")
	}
}

func TestFlushBypassesDebounce(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	h.sched.Settle(req(1))
	h.sched.Flush(req(2))
	if call := h.fetcher.next(t); call.req != req(2) {
		t.Fatalf("Expected immediate fetch of R2, got %+v", call.req.Region)
	}

	// The superseded debounced intent never fires.
	h.clock.Advance(time.Second)
	h.fetcher.none(t)
}

func TestCloseDropsEverything(t *testing.T) {
	h := newHarness(150 * time.Millisecond)

	h.sched.Flush(req(1))
	call := h.fetcher.next(t)
	h.sched.Settle(req(2))
	h.sched.Close()

	h.clock.Advance(time.Second)
	h.fetcher.none(t)

	call.reply <- fetchResult{img: img()}
	select {
	case r := <-h.rasters:
		t.Fatalf("raster delivered after close: %+v", r.Request.Region)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeApplied: "applied",
		OutcomeStale:   "stale",
		OutcomeFailed:  "failed",
		Outcome(42):    "unknown",
	}
	for o, want := range tests {
		if got := o.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, expected %q", int(o), got, want)
		}
	}
}
