// Package viewcmd holds the commands that drive a headless viewer: taking
// snapshots, replaying scripted input and summarizing fetch traces.
package viewcmd

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/iiif"
	"github.com/lehigh-university-libraries/roiviewer/internal/render"
	"github.com/lehigh-university-libraries/roiviewer/internal/scheduler"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
)

// ConfigLoader returns the configuration for one command run.
type ConfigLoader func() (*config.Config, error)

// openViewer opens a viewer over the configured IIIF server.
func openViewer(ctx context.Context, cfg *config.Config, urns []string, canvas geometry.Size, observer func(scheduler.Event)) (*viewer.Viewer, error) {
	client := iiif.NewClient(cfg.IIIF.Server, cfg.IIIF.PathPrefix, cfg.IIIF.Timeout)
	opts := viewer.OptionsFromConfig(cfg)
	opts.Observer = observer
	if canvas.W == 0 {
		canvas.W = cfg.Viewer.Width
	}
	if canvas.H == 0 {
		canvas.H = cfg.Viewer.Height
	}
	return viewer.Open(ctx, client, urns, canvas, opts)
}

// settle waits for the viewer to finish fetching. A failed fetch is only an
// error when there is nothing to show.
func settle(ctx context.Context, v *viewer.Viewer, timeout time.Duration) (viewer.Frame, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	f, err := v.WaitSettled(ctx)
	if err != nil {
		if f.HasRaster() && ctx.Err() == nil {
			slog.Warn("Showing previous raster after fetch failure", "err", err)
			return f, nil
		}
		return f, fmt.Errorf("viewer did not settle: %w", err)
	}
	return f, nil
}

func writePNG(path string, f viewer.Frame) error {
	img, err := render.Frame(f, render.DefaultOptions())
	if err != nil {
		return err
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return out.Close()
}
