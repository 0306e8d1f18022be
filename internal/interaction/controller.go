// Package interaction turns pointer and modifier events into viewer actions.
//
// The Controller is a small state machine over a tagged Gesture value.
// A press starts panning, or selecting when the select modifier is held,
// and only a genuine pointer release ends the gesture. Leaving the surface
// or losing focus keeps it alive.
package interaction

import (
	"log/slog"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// DefaultMinSelection is the smallest marquee side, in canvas pixels, that
// commits an ROI.
const DefaultMinSelection = 5

// ActionCallbacks are the side effects of gestures. Nil callbacks are
// skipped.
type ActionCallbacks struct {
	// Viewport returns the current viewport, recorded when a pan starts.
	Viewport func() geometry.Viewport
	// Pan moves the viewport by a canvas-pixel delta.
	Pan func(delta geometry.Point) error
	// Preview shows the provisional marquee; nil clears it.
	Preview func(rect *geometry.Rect)
	// Commit receives a finished marquee in canvas pixels.
	Commit func(rect geometry.Rect) error
	// Query hit-tests a canvas point.
	Query func(pt geometry.Point) error
}

// StateListener observes gesture transitions.
type StateListener func(prev, next Kind)

// Options configure a Controller.
type Options struct {
	MinSelection float64
	Logger       *slog.Logger
}

// Controller drives the gesture state machine. It is not safe for
// concurrent use.
type Controller struct {
	gesture   Gesture
	minSize   float64
	actions   ActionCallbacks
	logger    *slog.Logger
	listeners []StateListener
}

// New returns a Controller in the Idle state.
func New(actions ActionCallbacks, opts Options) *Controller {
	if opts.MinSelection <= 0 {
		opts.MinSelection = DefaultMinSelection
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		gesture: Idle{},
		minSize: opts.MinSelection,
		actions: actions,
		logger:  opts.Logger,
	}
}

// Gesture returns the current gesture state.
func (c *Controller) Gesture() Gesture { return c.gesture }

// AddListener registers a transition listener.
func (c *Controller) AddListener(l StateListener) {
	c.listeners = append(c.listeners, l)
}

// PointerDown handles a button press at pt in canvas pixels. A press while a
// gesture is already active is ignored.
func (c *Controller) PointerDown(pt geometry.Point, mods Modifier) error {
	if _, idle := c.gesture.(Idle); !idle {
		c.logger.Debug("pointer down ignored", "gesture", c.gesture.Kind().String())
		return nil
	}

	switch {
	case mods.Has(ModSelect):
		c.transition(Selecting{Start: pt, Current: pt})
		c.preview(nil)
	case mods.Has(ModQuery):
		if c.actions.Query != nil {
			return c.actions.Query(pt)
		}
	default:
		var vp geometry.Viewport
		if c.actions.Viewport != nil {
			vp = c.actions.Viewport()
		}
		c.transition(Panning{Start: pt, Last: pt, StartViewport: vp})
	}
	return nil
}

// PointerMove handles pointer motion. Motion while idle is ignored.
func (c *Controller) PointerMove(pt geometry.Point) error {
	switch g := c.gesture.(type) {
	case Panning:
		delta := pt.Sub(g.Last)
		g.Last = pt
		c.gesture = g
		if c.actions.Pan != nil && (delta.X != 0 || delta.Y != 0) {
			return c.actions.Pan(delta)
		}
	case Selecting:
		g.Current = pt
		c.gesture = g
		r := g.Rect()
		c.preview(&r)
	}
	return nil
}

// PointerUp finalizes the active gesture. A marquee smaller than the
// minimum selection size is discarded.
func (c *Controller) PointerUp(pt geometry.Point) error {
	switch g := c.gesture.(type) {
	case Panning:
		err := c.PointerMove(pt)
		c.transition(Idle{})
		return err
	case Selecting:
		g.Current = pt
		r := g.Rect()
		c.transition(Idle{})
		c.preview(nil)
		if r.W < c.minSize || r.H < c.minSize {
			c.logger.Debug("selection below minimum size discarded", "w", r.W, "h", r.H)
			return nil
		}
		if c.actions.Commit != nil {
			return c.actions.Commit(r)
		}
	}
	return nil
}

// ModifierReleased handles the release of mods. Releasing the select
// modifier cancels a selection; panning is never cancelled this way.
func (c *Controller) ModifierReleased(mods Modifier) {
	if _, selecting := c.gesture.(Selecting); selecting && mods.Has(ModSelect) {
		c.transition(Idle{})
		c.preview(nil)
	}
}

// Leave handles the pointer leaving the surface. The gesture continues.
func (c *Controller) Leave() {
	c.logger.Debug("pointer left surface", "gesture", c.gesture.Kind().String())
}

// Blur handles loss of keyboard focus. The gesture continues.
func (c *Controller) Blur() {
	c.logger.Debug("focus lost", "gesture", c.gesture.Kind().String())
}

// Cancel abandons any active gesture without side effects beyond clearing
// the provisional marquee.
func (c *Controller) Cancel() {
	if _, idle := c.gesture.(Idle); idle {
		return
	}
	_, selecting := c.gesture.(Selecting)
	c.transition(Idle{})
	if selecting {
		c.preview(nil)
	}
}

func (c *Controller) preview(r *geometry.Rect) {
	if c.actions.Preview != nil {
		c.actions.Preview(r)
	}
}

func (c *Controller) transition(next Gesture) {
	prev := c.gesture.Kind()
	c.gesture = next
	if prev == next.Kind() {
		return
	}
	c.logger.Debug("gesture transition", "from", prev.String(), "to", next.Kind().String())
	for _, l := range c.listeners {
		l(prev, next.Kind())
	}
}
