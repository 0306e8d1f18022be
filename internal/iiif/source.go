package iiif

import (
	"context"
	"image"
	"sync"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// Source is one IIIF image. Its extent is fetched once and cached.
type Source struct {
	client *Client
	urn    URN
	base   string

	mu     sync.Mutex
	extent geometry.Extent
}

// ID returns the base URN identifying the image.
func (s *Source) ID() string { return s.urn.Base() }

// URN returns the URN the source was created from.
func (s *Source) URN() URN { return s.urn }

// BaseURL returns the image base URL.
func (s *Source) BaseURL() string { return s.base }

// Extent returns the full image size, reading info.json on first use. A
// failed read is not cached.
func (s *Source) Extent(ctx context.Context) (geometry.Extent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extent.Valid() {
		return s.extent, nil
	}
	info, err := s.client.Info(ctx, s.urn)
	if err != nil {
		return geometry.Extent{}, err
	}
	s.extent = geometry.Extent{Width: info.Width, Height: info.Height}
	return s.extent, nil
}

// RequestURL builds the region request for the viewer.
func (s *Source) RequestURL(region geometry.Region, display geometry.Size) string {
	return RegionURL(s.base, region, display)
}

// FetchImage downloads and decodes a region response.
func (s *Source) FetchImage(ctx context.Context, url string) (image.Image, error) {
	return s.client.FetchImage(ctx, url)
}

// CropURL builds the URL of an ROI crop no larger than maxSize on either side.
func (s *Source) CropURL(r geometry.PercentRect, maxSize int) string {
	return ImageURL(s.base, &r, maxSize, maxSize)
}
