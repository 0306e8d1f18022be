package viewcmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/spf13/cobra"
)

type snapshotOptions struct {
	URNs    []string
	Width   int
	Height  int
	Zoom    float64
	At      string
	Pan     string
	Output  string
	Timeout time.Duration
}

// NewSnapshotCmd creates the snapshot command
func NewSnapshotCmd(load ConfigLoader) *cobra.Command {
	opts := snapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot <urn>...",
		Short: "Render a viewer frame to a PNG file",
		Long: `Opens a headless viewer on one image, optionally zooms and pans it,
waits for the region fetch to settle and writes the rendered frame with its
ROIs highlighted.

All URNs must name the same image. ROI fragments become highlighted ROIs.`,
		Example: `  # Fit the whole page into 800x600
  roiviewer snapshot urn:cite2:hmt:vaimg.2017a:VA012RN_0013 -o page.png

  # Zoom 4x around a canvas point with two ROIs
  roiviewer snapshot \
    urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.1,0.1,0.2,0.1 \
    urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.4,0.5,0.2,0.1 \
    --zoom 4 --at 300,200 -o detail.png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts.URNs = args
			return executeSnapshot(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().IntVar(&opts.Width, "width", 0, "Canvas width in pixels (default from config)")
	cmd.Flags().IntVar(&opts.Height, "height", 0, "Canvas height in pixels (default from config)")
	cmd.Flags().Float64Var(&opts.Zoom, "zoom", 1, "Zoom factor relative to the fitted view")
	cmd.Flags().StringVar(&opts.At, "at", "", "Canvas point to zoom around as x,y (default center)")
	cmd.Flags().StringVar(&opts.Pan, "pan", "", "Canvas drag to apply after zooming as dx,dy")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output PNG path (required)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum time to wait for the image")

	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func executeSnapshot(ctx context.Context, cfg *config.Config, opts snapshotOptions) error {
	v, err := openViewer(ctx, cfg, opts.URNs, geometry.Size{W: opts.Width, H: opts.Height}, nil)
	if err != nil {
		return err
	}
	defer v.Close()

	frame, err := v.Frame()
	if err != nil {
		return err
	}
	if opts.Zoom != 1 {
		at := geometry.Point{X: float64(frame.Canvas.W) / 2, Y: float64(frame.Canvas.H) / 2}
		if opts.At != "" {
			if at, err = parsePoint(opts.At); err != nil {
				return fmt.Errorf("--at: %w", err)
			}
		}
		if err := v.Zoom(at, opts.Zoom); err != nil {
			return err
		}
	}
	if opts.Pan != "" {
		delta, err := parsePoint(opts.Pan)
		if err != nil {
			return fmt.Errorf("--pan: %w", err)
		}
		if err := v.Pan(delta); err != nil {
			return err
		}
	}

	frame, err = settle(ctx, v, opts.Timeout)
	if err != nil {
		return err
	}
	if err := writePNG(opts.Output, frame); err != nil {
		return err
	}
	slog.Info("Snapshot written", "path", opts.Output, "region", frame.Region, "rois", len(frame.ROIs))
	return nil
}

// parsePoint reads "x,y".
func parsePoint(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("invalid x in %q", s)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return geometry.Point{}, fmt.Errorf("invalid y in %q", s)
	}
	return geometry.Point{X: x, Y: y}, nil
}
