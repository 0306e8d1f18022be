package roi

import (
	"fmt"
	"strings"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// Separator joins a base image identifier and an ROI token.
const Separator = "@"

// ID returns the identity of an ROI: "<image>@<token>".
func ID(image string, r geometry.PercentRect) string {
	return image + Separator + FormatToken(r)
}

// SplitID separates an identifier into its base image and ROI token. ok is
// false when the identifier carries no token.
func SplitID(id string) (image, token string, ok bool) {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return id, "", false
	}
	return id[:i], id[i+1:], true
}

// ParseID parses an identifier that must carry an ROI token.
func ParseID(id string) (string, geometry.PercentRect, error) {
	image, token, ok := SplitID(id)
	if !ok {
		return "", geometry.PercentRect{}, fmt.Errorf("%w: %q has no roi", ErrParse, id)
	}
	if image == "" {
		return "", geometry.PercentRect{}, fmt.Errorf("%w: %q has no image", ErrParse, id)
	}
	r, err := ParseToken(token)
	if err != nil {
		return "", geometry.PercentRect{}, err
	}
	return image, r, nil
}
