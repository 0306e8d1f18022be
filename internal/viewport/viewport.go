// Package viewport owns the pan and scale of one viewer and keeps them inside
// the bounds of the source image.
package viewport

import (
	"errors"
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// ErrNotReady is returned by every operation called before InitFit.
var ErrNotReady = errors.New("viewport not ready")

// Limits bound the scale relative to the fit-to-canvas scale.
type Limits struct {
	MinFactor float64 `yaml:"min_factor"`
	MaxFactor float64 `yaml:"max_factor"`
}

// DefaultLimits allows zooming out to a tenth of the fit scale and in to
// twenty times it.
func DefaultLimits() Limits {
	return Limits{MinFactor: 0.1, MaxFactor: 20}
}

// State is the viewport of a single viewer instance. It is not safe for
// concurrent use; callers serialize access.
type State struct {
	limits   Limits
	extent   geometry.Extent
	canvas   geometry.Size
	vp       geometry.Viewport
	fitScale float64
	minScale float64
	maxScale float64
	ready    bool
}

// New returns an uninitialized State. Invalid limits fall back to the defaults.
func New(limits Limits) *State {
	def := DefaultLimits()
	if !geometry.Finite(limits.MinFactor) || limits.MinFactor <= 0 {
		limits.MinFactor = def.MinFactor
	}
	if !geometry.Finite(limits.MaxFactor) || limits.MaxFactor < limits.MinFactor {
		limits.MaxFactor = math.Max(def.MaxFactor, limits.MinFactor)
	}
	return &State{limits: limits}
}

// InitFit fits the whole image into the canvas and centers it.
func (s *State) InitFit(extent geometry.Extent, canvas geometry.Size) error {
	if !extent.Valid() {
		return fmt.Errorf("%w: image extent %dx%d", geometry.ErrInvalidGeometry, extent.Width, extent.Height)
	}
	if !canvas.Valid() {
		return fmt.Errorf("%w: canvas size %dx%d", geometry.ErrInvalidGeometry, canvas.W, canvas.H)
	}
	s.extent = extent
	s.canvas = canvas
	s.setBounds()
	s.vp = s.clampPan(geometry.Viewport{Scale: s.fitScale})
	s.ready = true
	return nil
}

// Reset refits the image to the current canvas.
func (s *State) Reset() error {
	if !s.ready {
		return ErrNotReady
	}
	return s.InitFit(s.extent, s.canvas)
}

// Ready reports whether InitFit has succeeded.
func (s *State) Ready() bool { return s.ready }

// Viewport returns the current pan and scale.
func (s *State) Viewport() geometry.Viewport { return s.vp }

// Extent returns the source image size.
func (s *State) Extent() geometry.Extent { return s.extent }

// Canvas returns the current canvas size.
func (s *State) Canvas() geometry.Size { return s.canvas }

// FitScale returns the scale at which the whole image fits the canvas.
func (s *State) FitScale() float64 { return s.fitScale }

// ScaleBounds returns the current minimum and maximum scale.
func (s *State) ScaleBounds() (float64, float64) { return s.minScale, s.maxScale }

// ZoomAt multiplies the scale by factor while keeping the source point under
// the canvas point pt fixed, unless a scale or pan bound intervenes.
func (s *State) ZoomAt(pt geometry.Point, factor float64) error {
	if !s.ready {
		return ErrNotReady
	}
	if !geometry.Finite(pt.X, pt.Y, factor) || factor <= 0 {
		return fmt.Errorf("%w: zoom by %v at (%v,%v)", geometry.ErrInvalidGeometry, factor, pt.X, pt.Y)
	}
	anchor := geometry.CanvasToSource(s.vp, pt)
	scale := clamp(s.vp.Scale*factor, s.minScale, s.maxScale)
	next := geometry.Viewport{
		PanX:  anchor.X - pt.X/scale,
		PanY:  anchor.Y - pt.Y/scale,
		Scale: scale,
	}
	return s.commit(s.clampPan(next))
}

// PanBy moves the view so the image follows a canvas-space drag of delta.
func (s *State) PanBy(delta geometry.Point) error {
	if !s.ready {
		return ErrNotReady
	}
	if !geometry.Finite(delta.X, delta.Y) {
		return fmt.Errorf("%w: pan delta (%v,%v)", geometry.ErrInvalidGeometry, delta.X, delta.Y)
	}
	next := s.vp
	next.PanX -= delta.X / next.Scale
	next.PanY -= delta.Y / next.Scale
	return s.commit(s.clampPan(next))
}

// Resize adopts a new canvas size. The scale bounds follow the new fit scale
// and the current scale is clamped into them.
func (s *State) Resize(canvas geometry.Size) error {
	if !s.ready {
		return ErrNotReady
	}
	if !canvas.Valid() {
		return fmt.Errorf("%w: canvas size %dx%d", geometry.ErrInvalidGeometry, canvas.W, canvas.H)
	}
	prev := *s
	s.canvas = canvas
	s.setBounds()
	next := s.vp
	next.Scale = clamp(next.Scale, s.minScale, s.maxScale)
	if err := s.commit(s.clampPan(next)); err != nil {
		*s = prev
		return err
	}
	return nil
}

// RequestRegion is ComputeRequestRegion for the current canvas.
func (s *State) RequestRegion() (geometry.Region, error) {
	return s.ComputeRequestRegion(s.canvas)
}

// ComputeRequestRegion returns the source pixels visible on a canvas of the
// given size. The region is never empty and never leaves the image.
func (s *State) ComputeRequestRegion(canvas geometry.Size) (geometry.Region, error) {
	if !s.ready {
		return geometry.Region{}, ErrNotReady
	}
	if !canvas.Valid() {
		return geometry.Region{}, fmt.Errorf("%w: canvas size %dx%d", geometry.ErrInvalidGeometry, canvas.W, canvas.H)
	}
	x, w := span(s.vp.PanX, float64(canvas.W)/s.vp.Scale, float64(s.extent.Width))
	y, h := span(s.vp.PanY, float64(canvas.H)/s.vp.Scale, float64(s.extent.Height))
	return geometry.Region{X: x, Y: y, W: w, H: h}, nil
}

// DisplaySize is the output size to request for region: its on-canvas size,
// capped at the region itself since servers are not asked to upscale.
func (s *State) DisplaySize(region geometry.Region) geometry.Size {
	return geometry.Size{
		W: displayDim(region.W, s.vp.Scale),
		H: displayDim(region.H, s.vp.Scale),
	}
}

func (s *State) setBounds() {
	s.fitScale = math.Min(
		float64(s.canvas.W)/float64(s.extent.Width),
		float64(s.canvas.H)/float64(s.extent.Height),
	)
	s.minScale = s.fitScale * s.limits.MinFactor
	s.maxScale = s.fitScale * s.limits.MaxFactor
}

// clampPan centers an axis on which the scaled image fits the canvas and
// otherwise keeps the view inside the image.
func (s *State) clampPan(vp geometry.Viewport) geometry.Viewport {
	vp.PanX = clampAxis(vp.PanX, vp.Scale, float64(s.extent.Width), float64(s.canvas.W))
	vp.PanY = clampAxis(vp.PanY, vp.Scale, float64(s.extent.Height), float64(s.canvas.H))
	return vp
}

func (s *State) commit(vp geometry.Viewport) error {
	if !vp.Valid() {
		return fmt.Errorf("%w: viewport %+v", geometry.ErrInvalidGeometry, vp)
	}
	s.vp = vp
	return nil
}

func clampAxis(pan, scale, extent, canvas float64) float64 {
	view := canvas / scale
	if extent*scale <= canvas {
		return (extent - view) / 2
	}
	return clamp(pan, 0, extent-view)
}

// span converts one axis of the view into an integer origin and length inside
// [0, extent).
func span(pan, view, extent float64) (int, int) {
	origin := math.Floor(pan)
	length := math.Ceil(view)
	if origin < 0 {
		length = math.Ceil(view + pan)
		origin = 0
	}
	origin = math.Min(origin, extent-1)
	length = math.Max(1, math.Min(length, extent-origin))
	return int(origin), int(length)
}

func displayDim(n int, scale float64) int {
	d := int(math.Ceil(float64(n) * scale))
	if d > n {
		d = n
	}
	if d < 1 {
		d = 1
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
