package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/roiviewer/internal/iiif"
	"github.com/spf13/cobra"
)

func newInfoCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "info <urn>",
		Short:   "Show the size and IIIF base URL of an image",
		Example: `  roiviewer info urn:cite2:hmt:vaimg.2017a:VA012RN_0013`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			u, err := iiif.ParseURN(args[0])
			if err != nil {
				return err
			}
			client := iiif.NewClient(cfg.IIIF.Server, cfg.IIIF.PathPrefix, cfg.IIIF.Timeout)
			extent, err := client.Source(u).Extent(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "image:  %s\n", u.Base())
			fmt.Fprintf(out, "url:    %s\n", client.BaseURL(u))
			fmt.Fprintf(out, "width:  %d\n", extent.Width)
			fmt.Fprintf(out, "height: %d\n", extent.Height)
			return nil
		},
	}
}

func newURLCmd(opts *rootOptions) *cobra.Command {
	var width, height int

	cmd := &cobra.Command{
		Use:   "url <urn>",
		Short: "Print a IIIF image URL for a URN",
		Long: `Prints a standalone IIIF Image API URL for a URN. An ROI fragment becomes
a pct: region with whole percentages; without one the full image is used.`,
		Example: `  # Full image no larger than 1000x1000
  roiviewer url urn:cite2:hmt:vaimg.2017a:VA012RN_0013 --width 1000 --height 1000

  # An ROI at its native size
  roiviewer url urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.1,0.2,0.3,0.1`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			u, err := iiif.ParseURN(args[0])
			if err != nil {
				return err
			}
			client := iiif.NewClient(cfg.IIIF.Server, cfg.IIIF.PathPrefix, cfg.IIIF.Timeout)
			fmt.Fprintln(cmd.OutOrStdout(), client.URL(u, width, height))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Maximum width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Maximum height in pixels")

	return cmd
}
