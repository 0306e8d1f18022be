// Package viewer is the zoomable image viewer core.
//
// A Viewer combines the viewport, the ROI store, the region fetch scheduler
// and the gesture controller for one image. All state changes are serialized
// by a single mutex; only region fetches run concurrently. Listeners are
// called after the mutex is released and receive immutable values.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/interaction"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
	"github.com/lehigh-university-libraries/roiviewer/internal/scheduler"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewport"
)

var (
	ErrNotReady        = viewport.ErrNotReady
	ErrInvalidGeometry = geometry.ErrInvalidGeometry
	ErrFetchFailed     = scheduler.ErrFetchFailed
	ErrParse           = roi.ErrParse
	ErrNotFound        = roi.ErrNotFound
	ErrImageMismatch   = roi.ErrImageMismatch
	ErrClosed          = errors.New("viewer closed")
)

// ImageSource is the remote image a viewer displays.
type ImageSource interface {
	// ID identifies the image; ROI identities are built from it.
	ID() string
	// Extent returns the full image size. It may block on the network.
	Extent(ctx context.Context) (geometry.Extent, error)
	// RequestURL builds the request for a region scaled to display.
	RequestURL(region geometry.Region, display geometry.Size) string
	// FetchImage downloads and decodes a request.
	FetchImage(ctx context.Context, url string) (image.Image, error)
}

// Viewer is one interactive view over one image.
type Viewer struct {
	mu     sync.Mutex
	opts   Options
	source ImageSource
	vp     *viewport.State
	rois   *roi.Store
	sched  *scheduler.Scheduler
	ctrl   *interaction.Controller

	provisional *geometry.Rect
	committed   string
	closed      bool

	frameListeners []func(Frame)
	errorListeners []func(error)
	roiListeners   []func([]string)
	queryListeners []func(QueryResult)

	queue []func()
}

// New returns a viewer for source. It is not ready until Init succeeds.
func New(source ImageSource, opts Options) *Viewer {
	opts.normalize()
	v := &Viewer{
		opts:   opts,
		source: source,
		vp:     viewport.New(opts.Limits),
		rois:   roi.NewStore(source.ID()),
	}
	fetch := scheduler.FetcherFunc(func(ctx context.Context, req scheduler.Request) (image.Image, error) {
		return source.FetchImage(ctx, source.RequestURL(req.Region, req.Display))
	})
	v.sched = scheduler.New(fetch, scheduler.Options{
		Debounce: opts.Debounce,
		Clock:    opts.Clock,
		Logger:   opts.Logger,
		OnRaster: v.rasterArrived,
		OnError:  v.fetchFailed,
		Observer: opts.Observer,
	})
	v.ctrl = interaction.New(interaction.ActionCallbacks{
		Viewport: v.vp.Viewport,
		Pan:      v.panLocked,
		Preview:  v.previewLocked,
		Commit:   v.commitLocked,
		Query: func(pt geometry.Point) error {
			_, err := v.queryLocked(pt)
			return err
		},
	}, interaction.Options{MinSelection: opts.MinSelection, Logger: opts.Logger})
	return v
}

// ID returns the image identifier.
func (v *Viewer) ID() string { return v.source.ID() }

// Init reads the image extent, fits it into canvas, adds the initial ROIs and
// fetches the first frame without debounce. Initial ROIs are identifiers of
// the form "<image>@x,y,w,h"; duplicates are skipped.
func (v *Viewer) Init(ctx context.Context, canvas geometry.Size, initial ...string) error {
	extent, err := v.source.Extent(ctx)
	if err != nil {
		return fmt.Errorf("%w: image extent: %w", ErrFetchFailed, err)
	}
	return v.do(func() error {
		if v.closed {
			return ErrClosed
		}
		for _, id := range initial {
			base, r, err := roi.ParseID(id)
			if err != nil {
				return err
			}
			if base != v.rois.Image() {
				return fmt.Errorf("%w: %s is not %s", ErrImageMismatch, base, v.rois.Image())
			}
			if _, err := roi.Normalize(r); err != nil {
				return err
			}
		}
		if err := v.vp.InitFit(extent, canvas); err != nil {
			return err
		}
		added := false
		for _, id := range initial {
			_, ok, err := v.rois.AddID(id)
			if err != nil {
				return err
			}
			added = added || ok
		}
		v.opts.Logger.Info("viewer initialized", "image", v.source.ID(), "width", extent.Width, "height", extent.Height, "rois", v.rois.Len())
		if added {
			v.queueROIsLocked()
		}
		return v.requestLocked(true)
	})
}

// Resize adopts a new canvas size.
func (v *Viewer) Resize(canvas geometry.Size) error {
	return v.mutate(func() error { return v.vp.Resize(canvas) })
}

// Pan drags the image by a canvas-pixel delta.
func (v *Viewer) Pan(delta geometry.Point) error {
	return v.do(func() error { return v.panLocked(delta) })
}

// Zoom multiplies the scale by factor around the canvas point pt.
func (v *Viewer) Zoom(pt geometry.Point, factor float64) error {
	return v.mutate(func() error { return v.vp.ZoomAt(pt, factor) })
}

// Wheel zooms around pt by whole or fractional wheel notches. Negative
// notches (scrolling up) zoom in.
func (v *Viewer) Wheel(pt geometry.Point, notches float64) error {
	if !geometry.Finite(notches) {
		return fmt.Errorf("%w: wheel delta %v", ErrInvalidGeometry, notches)
	}
	return v.Zoom(pt, math.Pow(v.opts.WheelStep, -notches))
}

// Reset refits the image to the canvas and fetches immediately.
func (v *Viewer) Reset() error {
	return v.do(func() error {
		if err := v.readyLocked(); err != nil {
			return err
		}
		if err := v.vp.Reset(); err != nil {
			return err
		}
		return v.requestLocked(true)
	})
}

// PointerDown forwards a button press to the gesture controller.
func (v *Viewer) PointerDown(pt geometry.Point, mods interaction.Modifier) error {
	return v.gesture(func() error { return v.ctrl.PointerDown(pt, mods) })
}

// PointerMove forwards pointer motion.
func (v *Viewer) PointerMove(pt geometry.Point) error {
	return v.gesture(func() error { return v.ctrl.PointerMove(pt) })
}

// PointerUp forwards a button release.
func (v *Viewer) PointerUp(pt geometry.Point) error {
	return v.gesture(func() error { return v.ctrl.PointerUp(pt) })
}

// ModifierReleased forwards the release of modifier keys.
func (v *Viewer) ModifierReleased(mods interaction.Modifier) error {
	return v.gesture(func() error {
		v.ctrl.ModifierReleased(mods)
		return nil
	})
}

// Leave reports that the pointer left the surface.
func (v *Viewer) Leave() error {
	return v.gesture(func() error {
		v.ctrl.Leave()
		return nil
	})
}

// Blur reports that the surface lost focus.
func (v *Viewer) Blur() error {
	return v.gesture(func() error {
		v.ctrl.Blur()
		return nil
	})
}

// Keymap returns the modifier key bindings of this viewer.
func (v *Viewer) Keymap() interaction.Keymap { return v.opts.Keymap }

// BeginSelect starts a marquee at the canvas point pt.
func (v *Viewer) BeginSelect(pt geometry.Point) error {
	return v.PointerDown(pt, interaction.ModSelect)
}

// UpdateSelect moves the free corner of the marquee.
func (v *Viewer) UpdateSelect(pt geometry.Point) error {
	return v.PointerMove(pt)
}

// EndSelect finishes the marquee at pt and returns the identifier of the
// committed ROI, or "" when the marquee was too small or no selection was
// active.
func (v *Viewer) EndSelect(pt geometry.Point) (string, error) {
	var id string
	err := v.gesture(func() error {
		v.committed = ""
		if _, ok := v.ctrl.Gesture().(interaction.Selecting); !ok {
			return nil
		}
		err := v.ctrl.PointerUp(pt)
		id = v.committed
		return err
	})
	return id, err
}

// Query returns the identifiers of the ROIs under the canvas point pt and
// notifies query listeners.
func (v *Viewer) Query(pt geometry.Point) ([]string, error) {
	var ids []string
	err := v.do(func() error {
		if err := v.readyLocked(); err != nil {
			return err
		}
		var err error
		ids, err = v.queryLocked(pt)
		return err
	})
	return ids, err
}

// AddROI adds a percentage rectangle and returns its identifier and whether
// it was new. Adding an existing rectangle returns the existing identifier
// with added false.
func (v *Viewer) AddROI(r geometry.PercentRect) (id string, added bool, err error) {
	err = v.do(func() error {
		if v.closed {
			return ErrClosed
		}
		var err error
		id, added, err = v.addLocked(func() (string, bool, error) { return v.rois.Add(r) })
		return err
	})
	return id, added, err
}

// AddROIByID adds the ROI named by "<image>@x,y,w,h".
func (v *Viewer) AddROIByID(id string) (out string, added bool, err error) {
	err = v.do(func() error {
		if v.closed {
			return ErrClosed
		}
		var err error
		out, added, err = v.addLocked(func() (string, bool, error) { return v.rois.AddID(id) })
		return err
	})
	return out, added, err
}

// RemoveROI removes an ROI and reports whether it existed.
func (v *Viewer) RemoveROI(id string) bool {
	var removed bool
	_ = v.do(func() error {
		removed = v.rois.Remove(id)
		if removed {
			v.opts.Logger.Info("ROI removed", "id", id)
			v.queueROIsLocked()
			v.queueFrameLocked()
		}
		return nil
	})
	return removed
}

// ClearROIs removes every ROI and returns how many were removed.
func (v *Viewer) ClearROIs() int {
	var n int
	_ = v.do(func() error {
		n = v.rois.Clear()
		if n > 0 {
			v.queueROIsLocked()
			v.queueFrameLocked()
		}
		return nil
	})
	return n
}

// ListROIs returns the ROIs in insertion order.
func (v *Viewer) ListROIs() []roi.ROI {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.rois.All()
}

// Frame returns the current render description.
func (v *Viewer) Frame() (Frame, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.readyLocked(); err != nil {
		return Frame{}, err
	}
	return v.frameLocked(), nil
}

// Viewport returns the current viewport.
func (v *Viewer) Viewport() (geometry.Viewport, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.readyLocked(); err != nil {
		return geometry.Viewport{}, err
	}
	return v.vp.Viewport(), nil
}

// Extent returns the image extent once initialized.
func (v *Viewer) Extent() (geometry.Extent, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.readyLocked(); err != nil {
		return geometry.Extent{}, err
	}
	return v.vp.Extent(), nil
}

// OnFrame registers a listener called with a new Frame after every visible
// change.
func (v *Viewer) OnFrame(cb func(Frame)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frameListeners = append(v.frameListeners, cb)
}

// OnError registers a listener for fetch failures.
func (v *Viewer) OnError(cb func(error)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorListeners = append(v.errorListeners, cb)
}

// OnROIs registers a listener called with the ordered ROI identifiers after
// every add, remove or clear.
func (v *Viewer) OnROIs(cb func([]string)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.roiListeners = append(v.roiListeners, cb)
}

// OnQuery registers a listener for query results.
func (v *Viewer) OnQuery(cb func(QueryResult)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.queryListeners = append(v.queryListeners, cb)
}

// Close stops fetching. Further mutations return ErrClosed.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.sched.Close()
	v.queue = nil
}

// do runs fn under the mutex and then delivers the notifications it queued.
func (v *Viewer) do(fn func() error) error {
	v.mu.Lock()
	err := fn()
	queued := v.queue
	v.queue = nil
	v.mu.Unlock()
	for _, f := range queued {
		f()
	}
	return err
}

// mutate applies a viewport change and schedules a debounced fetch.
func (v *Viewer) mutate(fn func() error) error {
	return v.do(func() error {
		if err := v.readyLocked(); err != nil {
			return err
		}
		if err := fn(); err != nil {
			return err
		}
		return v.requestLocked(false)
	})
}

func (v *Viewer) gesture(fn func() error) error {
	return v.do(func() error {
		if err := v.readyLocked(); err != nil {
			return err
		}
		return fn()
	})
}

func (v *Viewer) readyLocked() error {
	if v.closed {
		return ErrClosed
	}
	if !v.vp.Ready() {
		return ErrNotReady
	}
	return nil
}

func (v *Viewer) panLocked(delta geometry.Point) error {
	if err := v.readyLocked(); err != nil {
		return err
	}
	if err := v.vp.PanBy(delta); err != nil {
		return err
	}
	return v.requestLocked(false)
}

// requestLocked hands the current request region to the scheduler,
// immediately when flush is set.
func (v *Viewer) requestLocked(flush bool) error {
	region, err := v.vp.RequestRegion()
	if err != nil {
		return err
	}
	req := scheduler.Request{Region: region, Display: v.vp.DisplaySize(region)}
	if flush {
		v.sched.Flush(req)
	} else {
		v.sched.Settle(req)
	}
	v.queueFrameLocked()
	return nil
}

func (v *Viewer) previewLocked(r *geometry.Rect) {
	if r == nil && v.provisional == nil {
		return
	}
	if r != nil {
		p := *r
		v.provisional = &p
	} else {
		v.provisional = nil
	}
	v.queueFrameLocked()
}

func (v *Viewer) commitLocked(r geometry.Rect) error {
	src := geometry.CanvasRectToSource(v.vp.Viewport(), r)
	pct := geometry.SourceToPercent(v.vp.Extent(), src)
	if roi.Empty(pct) {
		v.opts.Logger.Debug("selection outside the image discarded", "x", r.X, "y", r.Y, "w", r.W, "h", r.H)
		return nil
	}
	id, _, err := v.addLocked(func() (string, bool, error) { return v.rois.Add(pct) })
	if err != nil {
		return fmt.Errorf("failed to add selection: %w", err)
	}
	v.committed = id
	return nil
}

func (v *Viewer) addLocked(add func() (string, bool, error)) (string, bool, error) {
	id, added, err := add()
	if err != nil {
		return "", false, err
	}
	if added {
		v.opts.Logger.Info("ROI added", "id", id)
		v.queueROIsLocked()
		v.queueFrameLocked()
	} else {
		v.opts.Logger.Debug("duplicate ROI ignored", "id", id)
	}
	return id, added, nil
}

func (v *Viewer) queryLocked(pt geometry.Point) ([]string, error) {
	if !geometry.Finite(pt.X, pt.Y) {
		return nil, fmt.Errorf("%w: query point (%v,%v)", ErrInvalidGeometry, pt.X, pt.Y)
	}
	src := geometry.CanvasToSource(v.vp.Viewport(), pt)
	ext := v.vp.Extent()
	p := geometry.Point{X: src.X / float64(ext.Width), Y: src.Y / float64(ext.Height)}
	ids := v.rois.HitTest(p)
	v.opts.Logger.Debug("ROI query", "x", p.X, "y", p.Y, "hits", len(ids))
	res := QueryResult{Point: p, IDs: ids}
	for _, l := range v.queryListeners {
		v.queue = append(v.queue, func() { l(res) })
	}
	return ids, nil
}

func (v *Viewer) queueFrameLocked() {
	if len(v.frameListeners) == 0 || !v.vp.Ready() {
		return
	}
	f := v.frameLocked()
	for _, l := range v.frameListeners {
		v.queue = append(v.queue, func() { l(f) })
	}
}

func (v *Viewer) queueROIsLocked() {
	if len(v.roiListeners) == 0 {
		return
	}
	ids := v.rois.IDs()
	for _, l := range v.roiListeners {
		v.queue = append(v.queue, func() { l(ids) })
	}
}

func (v *Viewer) frameLocked() Frame {
	vp := v.vp.Viewport()
	ext := v.vp.Extent()
	f := Frame{
		Viewport: vp,
		Canvas:   v.vp.Canvas(),
		Extent:   ext,
		Loading:  v.sched.Loading(),
		Gesture:  v.ctrl.Gesture().Kind(),
	}
	if r, ok := v.sched.Last(); ok {
		f.Raster = r.Image
		f.Region = r.Request.Region
		f.Placement = geometry.RasterToCanvas(r.Request.Region, vp)
	}
	all := v.rois.All()
	f.ROIs = make([]FrameROI, len(all))
	for i, r := range all {
		f.ROIs[i] = FrameROI{
			ROI:    r,
			Index:  i,
			Canvas: geometry.SourceRectToCanvas(vp, geometry.PercentToSource(ext, r.Rect)),
		}
	}
	if v.provisional != nil {
		p := *v.provisional
		f.Provisional = &p
	}
	return f
}

func (v *Viewer) rasterArrived(r scheduler.Raster) {
	_ = v.do(func() error {
		if v.closed {
			return nil
		}
		v.opts.Logger.Debug("frame updated", "region", r.Request.Region, "seq", r.Seq)
		v.queueFrameLocked()
		return nil
	})
}

func (v *Viewer) fetchFailed(err error) {
	_ = v.do(func() error {
		if v.closed {
			return nil
		}
		for _, l := range v.errorListeners {
			v.queue = append(v.queue, func() { l(err) })
		}
		v.queueFrameLocked()
		return nil
	})
}
