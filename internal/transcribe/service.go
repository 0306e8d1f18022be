// Package transcribe sends ROI crops to a vision model and returns the text
// it reads.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/gemini"
	"github.com/lehigh-university-libraries/roiviewer/internal/geometry"
	"github.com/lehigh-university-libraries/roiviewer/internal/iiif"
	"github.com/lehigh-university-libraries/roiviewer/internal/ollama"
	"github.com/lehigh-university-libraries/roiviewer/internal/openai"
	"github.com/lehigh-university-libraries/roiviewer/internal/providers"
	"github.com/lehigh-university-libraries/roiviewer/internal/roi"
)

// Result is the transcription of one ROI.
type Result struct {
	ID       string  `json:"id"`
	URL      string  `json:"url"`
	Provider string  `json:"provider"`
	Model    string  `json:"model"`
	Text     string  `json:"text"`
	Seconds  float64 `json:"seconds"`
}

// Service transcribes ROIs of IIIF images.
type Service struct {
	client    *iiif.Client
	cfg       config.TranscribeConfig
	providers map[string]providers.Provider
	logger    *slog.Logger
}

// NewService returns a service with the ollama, openai and gemini providers
// registered.
func NewService(client *iiif.Client, cfg config.TranscribeConfig, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Prompt == "" {
		cfg.Prompt = config.DefaultPrompt
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1024
	}
	o := ollama.New()
	// local models can take minutes on a large crop
	o.HTTPClient = &http.Client{Timeout: 5 * time.Minute}
	return &Service{
		client: client,
		cfg:    cfg,
		providers: map[string]providers.Provider{
			"ollama": o,
			"openai": openai.New(),
			"gemini": gemini.New(),
		},
		logger: logger,
	}
}

// Register adds or replaces a provider.
func (s *Service) Register(name string, p providers.Provider) {
	s.providers[strings.ToLower(name)] = p
}

// Options overrides the configured provider and model for one call.
type Options struct {
	Provider string
	Model    string
}

// TranscribeID transcribes the ROI named by a URN with an ROI fragment.
func (s *Service) TranscribeID(ctx context.Context, id string, opts Options) (*Result, error) {
	u, err := iiif.ParseURN(id)
	if err != nil {
		return nil, err
	}
	if u.ROI == nil {
		return nil, fmt.Errorf("%w: %s has no region of interest", roi.ErrParse, id)
	}
	return s.Transcribe(ctx, s.client.Source(u), *u.ROI, opts)
}

// Transcribe fetches the crop of r from src and asks the provider for its text.
func (s *Service) Transcribe(ctx context.Context, src *iiif.Source, r geometry.PercentRect, opts Options) (*Result, error) {
	name := opts.Provider
	if name == "" {
		name = s.cfg.Provider
	}
	if name == "" {
		name = "ollama"
	}
	name = strings.ToLower(name)
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
	model := opts.Model
	if model == "" {
		model = s.cfg.Model
	}
	if model == "" {
		model = DefaultModel(name)
	}

	url := src.CropURL(r, s.cfg.MaxSize)
	data, err := s.client.Download(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch region: %w", err)
	}

	id := roi.ID(src.ID(), r)
	s.logger.Info("Transcribing region", "id", id, "provider", name, "model", model, "bytes", len(data))
	start := time.Now()
	text, err := p.ExtractText(ctx, providers.Config{
		Model:       model,
		Temperature: s.cfg.Temperature,
		Prompt:      s.cfg.Prompt,
		Image:       data,
		MimeType:    "image/jpeg",
	})
	if err != nil {
		return nil, fmt.Errorf("%s transcription failed: %w", name, err)
	}
	return &Result{
		ID:       id,
		URL:      url,
		Provider: name,
		Model:    model,
		Text:     strings.TrimSpace(text),
		Seconds:  time.Since(start).Seconds(),
	}, nil
}

// DefaultModel returns the model for provider, honoring OLLAMA_MODEL,
// OPENAI_MODEL and GEMINI_MODEL.
func DefaultModel(provider string) string {
	switch provider {
	case "openai":
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			return model
		}
		return openai.DefaultModel
	case "gemini":
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			return model
		}
		return gemini.DefaultModel
	default:
		if model := os.Getenv("OLLAMA_MODEL"); model != "" {
			return model
		}
		return ollama.DefaultModel
	}
}
