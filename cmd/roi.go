package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
	"github.com/spf13/cobra"
)

func newROICmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Validate and hit-test ROI tokens",
		Long: `ROI tokens are four comma-separated fractions of the image size:
x,y,w,h with every value in [0,1], w and h positive and the rectangle inside
the image. Full URNs with an @ fragment are accepted too.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:     "parse <token>...",
		Short:   "Validate tokens and print their normalized form",
		Example: `  roiviewer roi parse 0.1,0.2,0.3,0.1 urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.5,0.5,0.2,0.2`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, arg := range args {
				r, err := parseTokenArg(arg)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tinvalid: %v\n", arg, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", arg, roi.FormatToken(r))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tokens invalid", failed, len(args))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "hit <x,y> <token>...",
		Short:   "List the tokens containing a percentage point",
		Example: `  roiviewer roi hit 0.15,0.25 0.1,0.2,0.3,0.1 0.5,0.5,0.2,0.2`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := parsePercentPoint(args[0])
			if err != nil {
				return err
			}
			store := roi.NewStore("")
			tokens := make(map[string]string)
			for _, arg := range args[1:] {
				r, err := parseTokenArg(arg)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				id, _, err := store.Add(r)
				if err != nil {
					return fmt.Errorf("%s: %w", arg, err)
				}
				tokens[id] = arg
			}
			for _, id := range store.HitTest(pt) {
				fmt.Fprintln(cmd.OutOrStdout(), tokens[id])
			}
			return nil
		},
	})

	return cmd
}

// parseTokenArg accepts a bare token or an id with an @ fragment.
func parseTokenArg(arg string) (geometry.PercentRect, error) {
	if _, token, ok := roi.SplitID(arg); ok {
		arg = token
	}
	r, err := roi.ParseToken(arg)
	if err != nil {
		return r, err
	}
	return roi.Normalize(r)
}

func parsePercentPoint(s string) (geometry.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return geometry.Point{}, fmt.Errorf("expected x,y, got %q", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errX != nil || errY != nil {
		return geometry.Point{}, fmt.Errorf("invalid point %q", s)
	}
	return geometry.Point{X: x, Y: y}, nil
}
