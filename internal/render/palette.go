package render

import "image/color"

// ROIOpacity is the fill opacity of ROI highlights.
const ROIOpacity = 0.3

// Palette holds the ROI colors, assigned by ROI index.
var Palette = []color.RGBA{
	{R: 255, G: 0, B: 0, A: 255},   // red
	{R: 0, G: 255, B: 0, A: 255},   // green
	{R: 0, G: 0, B: 255, A: 255},   // blue
	{R: 255, G: 255, B: 0, A: 255}, // yellow
	{R: 255, G: 0, B: 255, A: 255}, // magenta
	{R: 0, G: 255, B: 255, A: 255}, // cyan
	{R: 255, G: 165, B: 0, A: 255}, // orange
	{R: 128, G: 0, B: 128, A: 255}, // purple
}

var (
	background     = color.RGBA{R: 240, G: 240, B: 240, A: 255}
	marqueeFill    = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	marqueeOutline = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// ColorFor returns the palette color of the ROI at index i.
func ColorFor(i int) color.RGBA {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// withOpacity returns c at the given opacity as a non-premultiplied color.
func withOpacity(c color.RGBA, opacity float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(opacity*255 + 0.5)}
}
