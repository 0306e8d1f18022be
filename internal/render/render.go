// Package render paints viewer frames into images.
//
// The renderer only reads a viewer.Frame: the raster scaled into its
// placement, the ROI highlights and the provisional marquee.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
)

// Options control frame rendering.
type Options struct {
	Background   color.Color
	Interpolator draw.Interpolator
	MarqueeAlpha float64
	OutlineWidth int
	OutlineROIs  bool
}

// DefaultOptions renders with bilinear scaling and a translucent blue marquee.
func DefaultOptions() Options {
	return Options{
		Background:   background,
		Interpolator: draw.BiLinear,
		MarqueeAlpha: 0.2,
		OutlineWidth: 1,
	}
}

// Frame paints f onto a new canvas-sized image.
func Frame(f viewer.Frame, opts Options) (*image.RGBA, error) {
	if !f.Canvas.Valid() {
		return nil, fmt.Errorf("%w: canvas %dx%d", geometry.ErrInvalidGeometry, f.Canvas.W, f.Canvas.H)
	}
	if opts.Background == nil {
		opts.Background = background
	}
	if opts.Interpolator == nil {
		opts.Interpolator = draw.BiLinear
	}

	dst := image.NewRGBA(image.Rect(0, 0, f.Canvas.W, f.Canvas.H))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	if f.Raster != nil {
		dr := toRect(f.Placement)
		if !dr.Empty() {
			opts.Interpolator.Scale(dst, dr, f.Raster, f.Raster.Bounds(), draw.Over, nil)
		}
	}

	for _, r := range f.ROIs {
		c := ColorFor(r.Index)
		rect := toRect(r.Canvas)
		fill(dst, rect, withOpacity(c, ROIOpacity))
		if opts.OutlineROIs {
			outline(dst, rect, c, opts.OutlineWidth)
		}
	}

	if f.Provisional != nil {
		rect := toRect(*f.Provisional)
		fill(dst, rect, withOpacity(marqueeFill, opts.MarqueeAlpha))
		outline(dst, rect, marqueeOutline, opts.OutlineWidth)
	}
	return dst, nil
}

// EncodePNG renders f and writes it as PNG.
func EncodePNG(w io.Writer, f viewer.Frame, opts Options) error {
	img, err := Frame(f, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func toRect(r geometry.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)),
		int(math.Round(r.Y+r.H)),
	)
}

func fill(dst *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Over)
}

func outline(dst *image.RGBA, r image.Rectangle, c color.Color, width int) {
	if width <= 0 || r.Empty() {
		return
	}
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fill(dst, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fill(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), c)
	fill(dst, image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), c)
}
