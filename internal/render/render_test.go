package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func near(a, b uint8) bool {
	d := int(a) - int(b)
	return d >= -2 && d <= 2
}

func isRed(c color.RGBA) bool {
	return near(c.R, 255) && c.G <= 2 && c.B <= 2 && near(c.A, 255)
}

func testFrame() viewer.Frame {
	return viewer.Frame{
		Raster:    solid(4, 3, color.RGBA{R: 255, A: 255}),
		Region:    geometry.Region{W: 4, H: 3},
		Placement: geometry.Rect{W: 8, H: 6},
		Canvas:    geometry.Size{W: 10, H: 10},
	}
}

func TestFrameRaster(t *testing.T) {
	img, err := Frame(testFrame(), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Fatalf("Unexpected bounds %v", img.Bounds())
	}
	if got := img.RGBAAt(3, 3); !isRed(got) {
		t.Errorf("Expected raster pixel, got %v", got)
	}
	if got := img.RGBAAt(9, 9); got != background {
		t.Errorf("Expected background outside placement, got %v", got)
	}
}

func TestFrameROIHighlight(t *testing.T) {
	f := testFrame()
	f.ROIs = []viewer.FrameROI{{
		ROI:    roi.ROI{ID: "x@0,0,0.5,0.5"},
		Index:  1,
		Canvas: geometry.Rect{W: 5, H: 5},
	}}
	img, err := Frame(f, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	got := img.RGBAAt(2, 2)
	if !near(got.R, 178) || !near(got.G, 77) || got.B != 0 {
		t.Errorf("Expected green at 30%% over red, got %v", got)
	}
	if got := img.RGBAAt(6, 2); !isRed(got) {
		t.Errorf("Expected untouched raster outside roi, got %v", got)
	}
}

func TestFrameProvisionalMarquee(t *testing.T) {
	f := testFrame()
	f.Provisional = &geometry.Rect{X: 6, Y: 6, W: 3, H: 3}
	img, err := Frame(f, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(6, 6); got != marqueeOutline {
		t.Errorf("Expected outline at corner, got %v", got)
	}
	inside := img.RGBAAt(7, 7)
	if inside.B == 0 || inside == marqueeOutline {
		t.Errorf("Expected translucent fill inside marquee, got %v", inside)
	}
}

func TestFrameWithoutRaster(t *testing.T) {
	f := viewer.Frame{Canvas: geometry.Size{W: 3, H: 2}}
	img, err := Frame(f, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if got := img.RGBAAt(1, 1); got != background {
		t.Errorf("Expected background, got %v", got)
	}
}

func TestFrameInvalidCanvas(t *testing.T) {
	if _, err := Frame(viewer.Frame{}, DefaultOptions()); !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry, got %v", err)
	}
}

func TestEncodePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, testFrame(), DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 10 {
		t.Errorf("Unexpected size %v", img.Bounds())
	}
}

func TestColorFor(t *testing.T) {
	if ColorFor(0) != Palette[0] || ColorFor(8) != Palette[0] || ColorFor(9) != Palette[1] {
		t.Error("Palette must wrap by index")
	}
	if len(Palette) != 8 {
		t.Errorf("Expected 8 colors, got %d", len(Palette))
	}
}
