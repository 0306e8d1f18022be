package roi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
)

// Precision is the number of decimals kept in ROI tokens and identities.
const Precision = 4

const (
	scale   = 10000
	step    = 1.0 / scale
	epsilon = 1e-9
)

// ParseToken parses "x,y,w,h" into a percentage rectangle. The token must
// hold exactly four finite numbers in [0,1] with w and h positive and the
// rectangle inside the image. Nothing is clamped: any violation is ErrParse.
func ParseToken(token string) (geometry.PercentRect, error) {
	parts := strings.Split(token, ",")
	if len(parts) != 4 {
		return geometry.PercentRect{}, fmt.Errorf("%w: %q has %d components, expected 4", ErrParse, token, len(parts))
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geometry.PercentRect{}, fmt.Errorf("%w: %q: component %d is not a number", ErrParse, token, i+1)
		}
		if !geometry.Finite(v) || v < 0 || v > 1 {
			return geometry.PercentRect{}, fmt.Errorf("%w: %q: component %d outside [0,1]", ErrParse, token, i+1)
		}
		vals[i] = v
	}

	r := geometry.PercentRect{X: vals[0], Y: vals[1], W: vals[2], H: vals[3]}
	if err := check(r); err != nil {
		return geometry.PercentRect{}, fmt.Errorf("%w: %q: %v", ErrParse, token, err)
	}
	return r, nil
}

// FormatToken renders r with four decimals, the form used in ROI identities.
func FormatToken(r geometry.PercentRect) string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", r.X, r.Y, r.W, r.H)
}

// Normalize rounds r to four decimals and validates it. A rectangle that
// overhangs the right or bottom edge by at most one rounding step is
// trimmed; a larger overhang is ErrInvalidGeometry. w and h are never
// rounded to zero silently.
func Normalize(r geometry.PercentRect) (geometry.PercentRect, error) {
	if !geometry.Finite(r.X, r.Y, r.W, r.H) {
		return geometry.PercentRect{}, fmt.Errorf("%w: non-finite roi", geometry.ErrInvalidGeometry)
	}
	n := geometry.PercentRect{X: round(r.X), Y: round(r.Y), W: round(r.W), H: round(r.H)}
	if over := n.X + n.W - 1; over > 0 && over <= step+epsilon {
		n.W = math.Floor((1-n.X)*scale+epsilon) / scale
	}
	if over := n.Y + n.H - 1; over > 0 && over <= step+epsilon {
		n.H = math.Floor((1-n.Y)*scale+epsilon) / scale
	}
	if err := check(n); err != nil {
		return geometry.PercentRect{}, fmt.Errorf("%w: %v", geometry.ErrInvalidGeometry, err)
	}
	return n, nil
}

// Empty reports whether r has no area once rounded to four decimals.
func Empty(r geometry.PercentRect) bool {
	return !(round(r.W) > 0) || !(round(r.H) > 0)
}

func check(r geometry.PercentRect) error {
	switch {
	case r.X < 0 || r.Y < 0 || r.X > 1 || r.Y > 1:
		return fmt.Errorf("origin %v,%v outside [0,1]", r.X, r.Y)
	case r.W <= 0 || r.H <= 0:
		return fmt.Errorf("width and height must be positive")
	case r.X+r.W > 1+epsilon || r.Y+r.H > 1+epsilon:
		return fmt.Errorf("rectangle extends past the image")
	}
	return nil
}

func round(v float64) float64 {
	return math.Round(v*scale) / scale
}
