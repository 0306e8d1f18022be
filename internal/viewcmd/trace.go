package viewcmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/roiviewer/internal/trace"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewTraceCmd creates the trace command
func NewTraceCmd() *cobra.Command {
	var records bool

	cmd := &cobra.Command{
		Use:   "trace <file>",
		Short: "Summarize a recorded fetch trace",
		Long: `Loads a Parquet or JSONL fetch trace written by replay and prints the
outcome counts and latency as YAML.`,
		Example: `  roiviewer trace fetches.parquet
  roiviewer trace fetches.jsonl --records`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeTrace(args[0], records, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&records, "records", false, "Also print every record")

	return cmd
}

func executeTrace(path string, withRecords bool, out io.Writer) error {
	loaded, err := trace.NewLoader(path).Load()
	if err != nil {
		return fmt.Errorf("failed to load trace: %w", err)
	}
	report := struct {
		Summary trace.Summary  `yaml:"summary"`
		Records []trace.Record `yaml:"records,omitempty"`
	}{Summary: trace.Summarize(loaded)}
	if withRecords {
		report.Records = loaded
	}
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}
