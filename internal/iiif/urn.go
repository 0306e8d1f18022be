package iiif

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
)

// ErrInvalidURN reports an identifier that is not a CITE2 object URN.
var ErrInvalidURN = errors.New("invalid CITE2 URN")

// URN is a parsed CITE2 object URN:
//
//	urn:cite2:<namespace>:<collection>[.<version>]:<object>[@x,y,w,h]
type URN struct {
	Namespace  string
	Collection string
	Version    string
	Object     string
	ROI        *geometry.PercentRect
}

// ParseURN parses a CITE2 URN. An ROI fragment must be a valid ROI token.
func ParseURN(s string) (URN, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[0] != "urn" || parts[1] != "cite2" {
		return URN{}, fmt.Errorf("%w: %q", ErrInvalidURN, s)
	}

	u := URN{Namespace: parts[2]}
	u.Collection, u.Version, _ = strings.Cut(parts[3], ".")

	object, token, hasROI := strings.Cut(parts[4], roi.Separator)
	u.Object = object
	if u.Namespace == "" || u.Collection == "" || u.Object == "" {
		return URN{}, fmt.Errorf("%w: %q has an empty component", ErrInvalidURN, s)
	}
	if hasROI {
		r, err := roi.ParseToken(token)
		if err != nil {
			return URN{}, err
		}
		u.ROI = &r
	}
	return u, nil
}

// Base returns the URN without its ROI fragment. It identifies the image.
func (u URN) Base() string {
	cv := u.Collection
	if u.Version != "" {
		cv += "." + u.Version
	}
	return fmt.Sprintf("urn:cite2:%s:%s:%s", u.Namespace, cv, u.Object)
}

// String returns the URN including any ROI fragment.
func (u URN) String() string {
	if u.ROI == nil {
		return u.Base()
	}
	return roi.ID(u.Base(), *u.ROI)
}

// ImagePath is the path of the pyramidal image on the server.
func (u URN) ImagePath(prefix string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(prefix, "/"))
	b.WriteString("/" + u.Namespace + "/" + u.Collection)
	if u.Version != "" {
		b.WriteString("/" + u.Version)
	}
	b.WriteString("/" + u.Object + ".tif")
	return b.String()
}
