// Package geometry converts between the three coordinate spaces of the viewer:
// canvas pixels, source-image pixels and resolution-independent percentages.
//
// All functions are pure. Types carry no behavior beyond small helpers so they
// can be copied freely into render descriptions.
package geometry

import (
	"errors"
	"math"
)

// ErrInvalidGeometry reports non-finite or malformed geometric input.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Point is a position in canvas or source pixel space.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is a canvas size in whole pixels.
type Size struct {
	W int `json:"width" yaml:"width"`
	H int `json:"height" yaml:"height"`
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.W > 0 && s.H > 0
}

// Extent is the full pixel size of a source image.
type Extent struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Valid reports whether both dimensions are positive.
func (e Extent) Valid() bool {
	return e.Width > 0 && e.Height > 0
}

// Rect is a floating point rectangle in canvas or source pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// RectFromCorners normalizes two arbitrary corners into a rectangle with
// non-negative width and height.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(a.X - b.X),
		H: math.Abs(a.Y - b.Y),
	}
}

// TopLeft returns the rectangle origin.
func (r Rect) TopLeft() Point {
	return Point{X: r.X, Y: r.Y}
}

// Region is an integer rectangle of source pixels, the unit of an image request.
type Region struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// TopLeft returns the region origin as a source point.
func (r Region) TopLeft() Point {
	return Point{X: float64(r.X), Y: float64(r.Y)}
}

// Empty reports whether the region covers no pixels.
func (r Region) Empty() bool {
	return r.W <= 0 || r.H <= 0
}

// Within reports whether the region lies fully inside the extent.
func (r Region) Within(e Extent) bool {
	return r.X >= 0 && r.Y >= 0 && r.W >= 1 && r.H >= 1 &&
		r.X+r.W <= e.Width && r.Y+r.H <= e.Height
}

// PercentRect is a rectangle expressed as fractions of the image extent.
type PercentRect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Contains reports whether pt lies in [x,x+w) x [y,y+h).
func (p PercentRect) Contains(pt Point) bool {
	return pt.X >= p.X && pt.X < p.X+p.W &&
		pt.Y >= p.Y && pt.Y < p.Y+p.H
}

// Viewport is the pan and scale state of a canvas over a source image.
// (PanX, PanY) is the source pixel drawn at the canvas origin and Scale is the
// number of canvas pixels per source pixel.
type Viewport struct {
	PanX  float64 `json:"pan_x"`
	PanY  float64 `json:"pan_y"`
	Scale float64 `json:"scale"`
}

// Valid reports whether every field is finite and the scale positive.
func (v Viewport) Valid() bool {
	return Finite(v.PanX, v.PanY, v.Scale) && v.Scale > 0
}

// Finite reports whether none of the values is NaN or infinite.
func Finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// CanvasToSource maps a canvas pixel to the source pixel under it.
func CanvasToSource(vp Viewport, pt Point) Point {
	return Point{
		X: vp.PanX + pt.X/vp.Scale,
		Y: vp.PanY + pt.Y/vp.Scale,
	}
}

// SourceToCanvas is the inverse of CanvasToSource.
func SourceToCanvas(vp Viewport, pt Point) Point {
	return Point{
		X: (pt.X - vp.PanX) * vp.Scale,
		Y: (pt.Y - vp.PanY) * vp.Scale,
	}
}

// CanvasRectToSource maps a canvas rectangle into source pixels.
func CanvasRectToSource(vp Viewport, r Rect) Rect {
	tl := CanvasToSource(vp, r.TopLeft())
	return Rect{X: tl.X, Y: tl.Y, W: r.W / vp.Scale, H: r.H / vp.Scale}
}

// SourceRectToCanvas maps a source rectangle onto the canvas.
func SourceRectToCanvas(vp Viewport, r Rect) Rect {
	tl := SourceToCanvas(vp, r.TopLeft())
	return Rect{X: tl.X, Y: tl.Y, W: r.W * vp.Scale, H: r.H * vp.Scale}
}

// SourceToPercent expresses a source rectangle as fractions of the extent.
// Both corners are clamped to [0,1] so the result satisfies x+w<=1 and y+h<=1;
// clamping only ever shrinks w and h.
func SourceToPercent(e Extent, r Rect) PercentRect {
	w, h := float64(e.Width), float64(e.Height)
	x1 := clamp01(r.X / w)
	y1 := clamp01(r.Y / h)
	x2 := clamp01((r.X + r.W) / w)
	y2 := clamp01((r.Y + r.H) / h)
	return PercentRect{
		X: x1,
		Y: y1,
		W: math.Max(0, x2-x1),
		H: math.Max(0, y2-y1),
	}
}

// PercentToSource expresses a percentage rectangle in source pixels.
func PercentToSource(e Extent, p PercentRect) Rect {
	w, h := float64(e.Width), float64(e.Height)
	return Rect{X: p.X * w, Y: p.Y * h, W: p.W * w, H: p.H * h}
}

// RasterToCanvas places a raster fetched for region on the canvas under vp.
// Placement derives from the fetched region, not the current request, so a
// frame stays put while a newer one is loading.
func RasterToCanvas(region Region, vp Viewport) Rect {
	off := SourceToCanvas(vp, region.TopLeft())
	return Rect{
		X: off.X,
		Y: off.Y,
		W: float64(region.W) * vp.Scale,
		H: float64(region.H) * vp.Scale,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
