package iiif

import (
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// Image request parameters fixed by the viewer.
const (
	Rotation = "0"
	Quality  = "default"
	Format   = "jpg"
)

// RegionURL builds the request for a source region scaled to fit display.
func RegionURL(base string, region geometry.Region, display geometry.Size) string {
	return fmt.Sprintf("%s/%d,%d,%d,%d/!%d,%d/%s/%s.%s",
		base, region.X, region.Y, region.W, region.H, display.W, display.H, Rotation, Quality, Format)
}

// PercentRegion renders an ROI as a pct: region with whole percentages.
// A nil ROI is the full image.
func PercentRegion(r *geometry.PercentRect) string {
	if r == nil {
		return "full"
	}
	return fmt.Sprintf("pct:%d,%d,%d,%d",
		int(math.Round(r.X*100)), int(math.Round(r.Y*100)),
		int(math.Round(r.W*100)), int(math.Round(r.H*100)))
}

// SizeParam renders the size parameter. Both dimensions fit within a box,
// one dimension scales the other, none is the full size.
func SizeParam(width, height int) string {
	switch {
	case width > 0 && height > 0:
		return fmt.Sprintf("!%d,%d", width, height)
	case width > 0:
		return fmt.Sprintf("%d,", width)
	case height > 0:
		return fmt.Sprintf(",%d", height)
	default:
		return "full"
	}
}

// ImageURL builds a standalone image URL for base with an optional ROI.
func ImageURL(base string, r *geometry.PercentRect, width, height int) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s.%s", base, PercentRegion(r), SizeParam(width, height), Rotation, Quality, Format)
}
