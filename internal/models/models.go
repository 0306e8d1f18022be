package models

import (
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/trace"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
)

// ViewerSession is one headless viewer driven over HTTP
type ViewerSession struct {
	ID        string    `json:"id"`
	Image     string    `json:"image"`
	URNs      []string  `json:"urns"`
	CreatedAt time.Time `json:"created_at"`

	Viewer *viewer.Viewer  `json:"-"`
	Trace  *trace.Recorder `json:"-"`
}

// SessionRequest creates a session. URN and URNs may be combined; all must
// name the same image.
type SessionRequest struct {
	URN    string   `json:"urn,omitempty"`
	URNs   []string `json:"urns,omitempty"`
	Width  int      `json:"width,omitempty"`
	Height int      `json:"height,omitempty"`
}

// AllURNs returns URN followed by URNs, skipping blanks.
func (r SessionRequest) AllURNs() []string {
	var out []string
	if r.URN != "" {
		out = append(out, r.URN)
	}
	for _, u := range r.URNs {
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

// SessionInfo is the observable state of a session
type SessionInfo struct {
	ID        string            `json:"id"`
	Image     string            `json:"image"`
	CreatedAt time.Time         `json:"created_at"`
	Canvas    geometry.Size     `json:"canvas"`
	Extent    geometry.Extent   `json:"extent"`
	Viewport  geometry.Viewport `json:"viewport"`
	Region    *geometry.Region  `json:"region,omitempty"`
	Loading   bool              `json:"loading"`
	Gesture   string            `json:"gesture"`
	Selection *geometry.Rect    `json:"selection,omitempty"`
	ROIs      []ROIItem         `json:"rois"`
}

// ROIItem is an ROI as listed by the API
type ROIItem struct {
	ID     string               `json:"id"`
	Index  int                  `json:"index"`
	Rect   geometry.PercentRect `json:"rect"`
	Canvas *geometry.Rect       `json:"canvas,omitempty"`
}

// ROIRequest adds an ROI either by id or by percentage rectangle
type ROIRequest struct {
	ID   string                `json:"id,omitempty"`
	Rect *geometry.PercentRect `json:"rect,omitempty"`
}

// ROIResponse reports the id of an added ROI
type ROIResponse struct {
	ID    string `json:"id"`
	Added bool   `json:"added"`
}

// QueryResponse lists the ROIs under a canvas point
type QueryResponse struct {
	X   float64  `json:"x"`
	Y   float64  `json:"y"`
	IDs []string `json:"ids"`
}

// TranscribeRequest selects the ROI and model for a transcription
type TranscribeRequest struct {
	ID       string `json:"id"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}
