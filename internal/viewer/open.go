package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/iiif"
)

// Open parses one or more CITE2 URNs for the same image, creates a viewer
// over the IIIF source and initializes it. ROI fragments of the URNs become
// the initial ROIs.
func Open(ctx context.Context, client *iiif.Client, urns []string, canvas geometry.Size, opts Options) (*Viewer, error) {
	if len(urns) == 0 {
		return nil, errors.New("no URNs provided")
	}
	var (
		first   iiif.URN
		initial []string
	)
	for i, s := range urns {
		u, err := iiif.ParseURN(s)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			first = u
		} else if u.Base() != first.Base() {
			return nil, fmt.Errorf("%w: %s is not %s", ErrImageMismatch, u.Base(), first.Base())
		}
		if u.ROI != nil {
			initial = append(initial, u.String())
		}
	}

	v := New(client.Source(first), opts)
	if err := v.Init(ctx, canvas, initial...); err != nil {
		v.Close()
		return nil, err
	}
	return v, nil
}
