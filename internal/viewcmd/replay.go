package viewcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/trace"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewer"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// EventWait pauses a replay until the viewer has settled.
const EventWait = "wait"

// Script is a recorded viewer session.
type Script struct {
	URNs   []string       `yaml:"urns"`
	Width  int            `yaml:"width,omitempty"`
	Height int            `yaml:"height,omitempty"`
	Events []viewer.Event `yaml:"events"`
}

// LoadScript reads a YAML replay script.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse script %s: %w", path, err)
	}
	if len(s.URNs) == 0 {
		return nil, fmt.Errorf("script %s lists no urns", path)
	}
	return &s, nil
}

type replayOptions struct {
	Script  string
	Trace   string
	Output  string
	Timeout time.Duration
}

// NewReplayCmd creates the replay command
func NewReplayCmd(load ConfigLoader) *cobra.Command {
	opts := replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Drive a headless viewer with scripted input",
		Long: `Replays a YAML script of input events against a headless viewer and
prints the resulting ROI URNs, one per line.

Events use the same fields as the HTTP API: pan, zoom, wheel, resize, reset,
pointerdown, pointermove, pointerup, modifierup, leave, blur and query.
A "wait" event blocks until pending region fetches have finished.

Every region fetch is recorded; --trace writes the records as Parquet or
JSONL depending on the file extension.`,
		Example: `  # Replay a selection and print the ROI
  roiviewer replay select.yaml

  # Keep the fetch trace and the final frame
  roiviewer replay select.yaml --trace fetches.parquet -o final.png

  # Example script
  urns: [urn:cite2:hmt:vaimg.2017a:VA012RN_0013]
  events:
    - {type: wheel, x: 400, y: 300, notches: -3}
    - {type: wait}
    - {type: pointerdown, x: 100, y: 100, keys: [alt]}
    - {type: pointerup, x: 300, y: 220}`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts.Script = args[0]
			return executeReplay(cmd.Context(), cfg, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Trace, "trace", "", "Write the fetch trace to a .parquet or .jsonl file")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write the final frame to a PNG file")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "Maximum time to wait at each wait event")

	return cmd
}

func executeReplay(ctx context.Context, cfg *config.Config, opts replayOptions, out io.Writer) error {
	script, err := LoadScript(opts.Script)
	if err != nil {
		return err
	}

	recorder := trace.NewRecorder()
	v, err := openViewer(ctx, cfg, script.URNs, geometry.Size{W: script.Width, H: script.Height}, recorder.Observe)
	if err != nil {
		return err
	}
	defer v.Close()

	for i, ev := range script.Events {
		if strings.EqualFold(ev.Type, EventWait) {
			if _, err := settle(ctx, v, opts.Timeout); err != nil {
				return fmt.Errorf("event %d: %w", i+1, err)
			}
			continue
		}
		if err := v.Apply(ev); err != nil {
			return fmt.Errorf("event %d (%s): %w", i+1, ev.Type, err)
		}
		slog.Debug("Applied event", "index", i+1, "type", ev.Type)
	}

	frame, err := settle(ctx, v, opts.Timeout)
	if err != nil {
		return err
	}
	for _, r := range v.ListROIs() {
		fmt.Fprintln(out, r.ID)
	}

	if opts.Output != "" {
		if err := writePNG(opts.Output, frame); err != nil {
			return err
		}
	}
	if opts.Trace != "" {
		records := recorder.Records()
		if err := trace.Write(opts.Trace, records); err != nil {
			return err
		}
		s := trace.Summarize(records)
		slog.Info("Trace written", "path", opts.Trace, "fetches", s.Total, "applied", s.Applied, "stale", s.Stale, "failed", s.Failed)
	}
	return nil
}
