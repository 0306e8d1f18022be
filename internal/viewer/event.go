package viewer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// Event types accepted by Apply.
const (
	EventPan         = "pan"
	EventZoom        = "zoom"
	EventWheel       = "wheel"
	EventResize      = "resize"
	EventReset       = "reset"
	EventPointerDown = "pointerdown"
	EventPointerMove = "pointermove"
	EventPointerUp   = "pointerup"
	EventModifierUp  = "modifierup"
	EventLeave       = "leave"
	EventBlur        = "blur"
	EventQuery       = "query"
)

// ErrUnknownEvent is returned by Apply for an unrecognized event type.
var ErrUnknownEvent = errors.New("unknown event type")

// Event is a serializable input event, used by scripted replays and the
// HTTP API. Coordinates are canvas pixels.
type Event struct {
	Type    string   `json:"type" yaml:"type"`
	X       float64  `json:"x,omitempty" yaml:"x,omitempty"`
	Y       float64  `json:"y,omitempty" yaml:"y,omitempty"`
	DX      float64  `json:"dx,omitempty" yaml:"dx,omitempty"`
	DY      float64  `json:"dy,omitempty" yaml:"dy,omitempty"`
	Factor  float64  `json:"factor,omitempty" yaml:"factor,omitempty"`
	Notches float64  `json:"notches,omitempty" yaml:"notches,omitempty"`
	Width   int      `json:"width,omitempty" yaml:"width,omitempty"`
	Height  int      `json:"height,omitempty" yaml:"height,omitempty"`
	Keys    []string `json:"keys,omitempty" yaml:"keys,omitempty"`
}

// Apply dispatches ev to the matching viewer operation. Key names are
// resolved through the viewer's keymap.
func (v *Viewer) Apply(ev Event) error {
	pt := geometry.Point{X: ev.X, Y: ev.Y}
	switch strings.ToLower(ev.Type) {
	case EventPan:
		return v.Pan(geometry.Point{X: ev.DX, Y: ev.DY})
	case EventZoom:
		return v.Zoom(pt, ev.Factor)
	case EventWheel:
		return v.Wheel(pt, ev.Notches)
	case EventResize:
		return v.Resize(geometry.Size{W: ev.Width, H: ev.Height})
	case EventReset:
		return v.Reset()
	case EventPointerDown:
		return v.PointerDown(pt, v.opts.Keymap.Resolve(ev.Keys...))
	case EventPointerMove:
		return v.PointerMove(pt)
	case EventPointerUp:
		return v.PointerUp(pt)
	case EventModifierUp:
		return v.ModifierReleased(v.opts.Keymap.Resolve(ev.Keys...))
	case EventLeave:
		return v.Leave()
	case EventBlur:
		return v.Blur()
	case EventQuery:
		_, err := v.Query(pt)
		return err
	default:
		return fmt.Errorf("%w %q", ErrUnknownEvent, ev.Type)
	}
}
