// Package roi holds regions of interest drawn over one image.
//
// ROIs are percentage rectangles rounded to four decimals. Their identity is
// the base image identifier joined with the rectangle token, so two ROIs with
// the same rectangle on the same image are the same ROI.
package roi

import (
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

var (
	// ErrParse reports a malformed ROI token or identifier. It matches
	// geometry.ErrInvalidGeometry under errors.Is.
	ErrParse = fmt.Errorf("%w: roi parse error", geometry.ErrInvalidGeometry)

	// ErrNotFound reports an unknown ROI identifier.
	ErrNotFound = errors.New("roi not found")

	// ErrImageMismatch reports an ROI anchored to a different base image.
	ErrImageMismatch = errors.New("roi belongs to another image")
)

// ROI is an immutable region of interest.
type ROI struct {
	ID    string               `json:"id"`
	Image string               `json:"image"`
	Rect  geometry.PercentRect `json:"rect"`
}

// Token returns the four-decimal rectangle token of the ROI.
func (r ROI) Token() string {
	return FormatToken(r.Rect)
}

// Store is an insertion-ordered set of ROIs for one base image. It is not
// safe for concurrent use; the viewer serializes access.
type Store struct {
	image string
	rois  []ROI
}

// NewStore returns an empty store for the given base image identifier.
func NewStore(image string) *Store {
	return &Store{image: image}
}

// Image returns the base image identifier.
func (s *Store) Image() string { return s.image }

// Add normalizes r and appends it. When an identical ROI is already present
// its identifier is returned with added false and the store is unchanged.
func (s *Store) Add(r geometry.PercentRect) (string, bool, error) {
	n, err := Normalize(r)
	if err != nil {
		return "", false, err
	}
	id := ID(s.image, n)
	if s.index(id) >= 0 {
		return id, false, nil
	}
	s.rois = append(s.rois, ROI{ID: id, Image: s.image, Rect: n})
	return id, true, nil
}

// AddID adds the ROI named by a "<image>@<token>" identifier.
func (s *Store) AddID(id string) (string, bool, error) {
	image, r, err := ParseID(id)
	if err != nil {
		return "", false, err
	}
	if image != s.image {
		return "", false, fmt.Errorf("%w: %s is not %s", ErrImageMismatch, image, s.image)
	}
	return s.Add(r)
}

// Remove deletes the ROI with the given identifier and reports whether it
// was present.
func (s *Store) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.rois = append(s.rois[:i], s.rois[i+1:]...)
	return true
}

// Clear removes every ROI and returns how many were removed.
func (s *Store) Clear() int {
	n := len(s.rois)
	s.rois = nil
	return n
}

// Get returns the ROI with the given identifier.
func (s *Store) Get(id string) (ROI, error) {
	i := s.index(id)
	if i < 0 {
		return ROI{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.rois[i], nil
}

// HitTest returns, in insertion order, the identifiers of every ROI
// containing pt. pt is in percentage coordinates and containment is
// half-open.
func (s *Store) HitTest(pt geometry.Point) []string {
	var ids []string
	for _, r := range s.rois {
		if r.Rect.Contains(pt) {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// All returns a snapshot of the ROIs in insertion order.
func (s *Store) All() []ROI {
	out := make([]ROI, len(s.rois))
	copy(out, s.rois)
	return out
}

// IDs returns the identifiers in insertion order.
func (s *Store) IDs() []string {
	ids := make([]string, len(s.rois))
	for i, r := range s.rois {
		ids[i] = r.ID
	}
	return ids
}

// Len returns the number of ROIs.
func (s *Store) Len() int { return len(s.rois) }

func (s *Store) index(id string) int {
	for i, r := range s.rois {
		if r.ID == id {
			return i
		}
	}
	return -1
}
