package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/logging"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewcmd"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	return config.Load(o.configPath)
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "roiviewer",
		Short: "Zoomable IIIF image viewer with regions of interest",
		Long: `roiviewer drives a zoomable viewer over IIIF images identified by CITE2 URNs.

It fetches only the visible region at the displayed resolution, lets you mark
regions of interest, and exposes the viewer headlessly on the command line
and over an HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := opts.logLevel
			if level == "" {
				level = os.Getenv("LOG_LEVEL")
			}
			if level == "" {
				level = "info"
			}
			parsed, err := logging.ParseLevel(level)
			if err != nil {
				return err
			}
			logger, err := logging.New(os.Stderr, parsed, opts.logFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "roiviewer.yaml", "Path to the YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (default $LOG_LEVEL or info)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newURLCmd(opts))
	cmd.AddCommand(newROICmd())
	cmd.AddCommand(newTranscribeCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))
	cmd.AddCommand(viewcmd.NewSnapshotCmd(opts.loadConfig))
	cmd.AddCommand(viewcmd.NewReplayCmd(opts.loadConfig))
	cmd.AddCommand(viewcmd.NewTraceCmd())

	return cmd
}
