package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/roiviewer/internal/iiif"
	"github.com/lehigh-university-libraries/roiviewer/internal/transcribe"
	"github.com/spf13/cobra"
)

func newTranscribeCmd(opts *rootOptions) *cobra.Command {
	var provider, model string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "transcribe <urn@roi>...",
		Short: "Transcribe the text inside ROIs with a vision model",
		Long: `Fetches each ROI crop from the IIIF server and asks a vision-capable LLM
(Ollama, OpenAI or Gemini) to transcribe it.

Provider credentials are read from the environment: OLLAMA_URL,
OPENAI_API_KEY or GEMINI_API_KEY.`,
		Example: `  # Transcribe with the local Ollama default model
  roiviewer transcribe urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.2,0.3,0.4,0.05

  # Use OpenAI
  roiviewer transcribe urn:cite2:hmt:vaimg.2017a:VA012RN_0013@0.2,0.3,0.4,0.05 --provider openai --model gpt-4o`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			client := iiif.NewClient(cfg.IIIF.Server, cfg.IIIF.PathPrefix, cfg.IIIF.Timeout)
			service := transcribe.NewService(client, cfg.Transcribe, nil)

			out := cmd.OutOrStdout()
			for _, id := range args {
				res, err := service.TranscribeID(cmd.Context(), id, transcribe.Options{Provider: provider, Model: model})
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				fmt.Fprintf(out, "%s\n%s\n", res.ID, res.Text)
				if verbose {
					fmt.Fprintf(out, "  provider=%s model=%s seconds=%.1f url=%s\n", res.Provider, res.Model, res.Seconds, res.URL)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider: ollama, openai or gemini (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default depends on provider)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show provider, model and timing")

	return cmd
}
