package interaction

import (
	"strings"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// Kind names a gesture state.
type Kind int

const (
	KindIdle Kind = iota
	KindPanning
	KindSelecting
)

func (k Kind) String() string {
	switch k {
	case KindIdle:
		return "idle"
	case KindPanning:
		return "panning"
	case KindSelecting:
		return "selecting"
	default:
		return "unknown"
	}
}

// Gesture is the tagged gesture state: Idle, Panning or Selecting.
type Gesture interface {
	Kind() Kind
}

// Idle waits for a pointer press.
type Idle struct{}

// Panning drags the viewport. Last is the most recent pointer position in
// canvas pixels.
type Panning struct {
	Start         geometry.Point
	Last          geometry.Point
	StartViewport geometry.Viewport
}

// Selecting rubber-bands a marquee between Start and Current.
type Selecting struct {
	Start   geometry.Point
	Current geometry.Point
}

func (Idle) Kind() Kind      { return KindIdle }
func (Panning) Kind() Kind   { return KindPanning }
func (Selecting) Kind() Kind { return KindSelecting }

// Rect is the marquee in canvas pixels.
func (s Selecting) Rect() geometry.Rect {
	return geometry.RectFromCorners(s.Start, s.Current)
}

// Modifier is a set of held modifier keys.
type Modifier uint8

const (
	// ModSelect starts a marquee selection instead of a pan (Alt/Option).
	ModSelect Modifier = 1 << iota
	// ModQuery turns a click into an ROI query (Shift).
	ModQuery
)

// Has reports whether every modifier in x is held.
func (m Modifier) Has(x Modifier) bool { return m&x == x && x != 0 }

// Keymap names the keys bound to the select and query modifiers.
type Keymap struct {
	Select string `yaml:"select"`
	Query  string `yaml:"query"`
}

// DefaultKeymap selects with Alt/Option and queries with Shift.
func DefaultKeymap() Keymap {
	return Keymap{Select: "alt", Query: "shift"}
}

// Resolve maps held key names to a modifier set. Matching ignores case and
// treats "option" as "alt"; unbound keys are ignored.
func (k Keymap) Resolve(keys ...string) Modifier {
	var m Modifier
	sel, query := normalizeKey(k.Select), normalizeKey(k.Query)
	for _, key := range keys {
		switch normalizeKey(key) {
		case "":
		case sel:
			m |= ModSelect
		case query:
			m |= ModQuery
		}
	}
	return m
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "option" {
		return "alt"
	}
	return key
}
