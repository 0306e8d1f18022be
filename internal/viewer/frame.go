package viewer

import (
	"image"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/interaction"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
)

// Frame is an immutable description of what to draw. A renderer paints it
// without consulting the viewer.
type Frame struct {
	// Raster is the last successfully fetched image, nil before the first
	// fetch completes. Region is the source region it was fetched for.
	Raster image.Image
	Region geometry.Region
	// Placement is where Raster lands on the canvas under Viewport.
	Placement geometry.Rect

	Viewport geometry.Viewport
	Canvas   geometry.Size
	Extent   geometry.Extent

	ROIs        []FrameROI
	Provisional *geometry.Rect
	Loading     bool
	Gesture     interaction.Kind
}

// FrameROI is an ROI positioned on the canvas. Index is its insertion
// position, used to pick its color.
type FrameROI struct {
	roi.ROI
	Index  int
	Canvas geometry.Rect
}

// HasRaster reports whether the frame carries an image.
func (f Frame) HasRaster() bool { return f.Raster != nil }

// QueryResult lists the ROIs under a queried point.
type QueryResult struct {
	// Point is the queried position in percentage coordinates.
	Point geometry.Point
	IDs   []string
}
