// Package config holds the viewer configuration.
//
// Configuration is read from a YAML file and overridden by environment
// variables. Every viewer is built from its own Config value.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultIIIFServer = "http://www.homermultitext.org/iipsrv?IIIF="
	DefaultPathPrefix = "/project/homer/pyramidal/deepzoom"
	DefaultPrompt     = "Transcribe all text visible in this image region exactly as written. Return only the transcription."
)

// Config holds runtime configuration for viewers and the commands that build
// them.
type Config struct {
	IIIF       IIIFConfig       `yaml:"iiif"`
	Viewer     ViewerConfig     `yaml:"viewer"`
	Transcribe TranscribeConfig `yaml:"transcribe"`
}

// IIIFConfig locates the image server.
type IIIFConfig struct {
	Server     string        `yaml:"server"`
	PathPrefix string        `yaml:"path_prefix"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ViewerConfig tunes viewport, scheduling and gestures.
type ViewerConfig struct {
	Debounce       time.Duration `yaml:"debounce"`
	MinZoomFactor  float64       `yaml:"min_zoom_factor"`
	MaxZoomFactor  float64       `yaml:"max_zoom_factor"`
	WheelStep      float64       `yaml:"wheel_step"`
	MinSelection   float64       `yaml:"min_selection"`
	Width          int           `yaml:"width"`
	Height         int           `yaml:"height"`
	SelectModifier string        `yaml:"select_modifier"`
	QueryModifier  string        `yaml:"query_modifier"`
}

// TranscribeConfig selects the model used for ROI transcription.
type TranscribeConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	Prompt      string  `yaml:"prompt"`
	MaxSize     int     `yaml:"max_size"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		IIIF: IIIFConfig{
			Server:     DefaultIIIFServer,
			PathPrefix: DefaultPathPrefix,
			Timeout:    30 * time.Second,
		},
		Viewer: ViewerConfig{
			Debounce:       150 * time.Millisecond,
			MinZoomFactor:  0.1,
			MaxZoomFactor:  20,
			WheelStep:      1.15,
			MinSelection:   5,
			Width:          800,
			Height:         600,
			SelectModifier: "alt",
			QueryModifier:  "shift",
		},
		Transcribe: TranscribeConfig{
			Provider:    "ollama",
			Temperature: 0,
			Prompt:      DefaultPrompt,
			MaxSize:     1024,
		},
	}
}

// Validate clamps and normalizes values to safe ranges. It fails only for
// values that cannot be repaired.
func (c *Config) Validate() error {
	d := DefaultConfig()
	if c.IIIF.Server == "" {
		return fmt.Errorf("iiif.server is required")
	}
	if c.IIIF.Timeout <= 0 {
		c.IIIF.Timeout = d.IIIF.Timeout
	}

	v := &c.Viewer
	if v.Debounce <= 0 {
		v.Debounce = d.Viewer.Debounce
	}
	if v.MinZoomFactor <= 0 || v.MinZoomFactor > 1 {
		v.MinZoomFactor = d.Viewer.MinZoomFactor
	}
	if v.MaxZoomFactor < 1 {
		v.MaxZoomFactor = d.Viewer.MaxZoomFactor
	}
	if v.WheelStep <= 1 {
		v.WheelStep = d.Viewer.WheelStep
	}
	if v.MinSelection <= 0 {
		v.MinSelection = d.Viewer.MinSelection
	}
	if v.Width <= 0 {
		v.Width = d.Viewer.Width
	}
	if v.Height <= 0 {
		v.Height = d.Viewer.Height
	}
	if v.SelectModifier == "" {
		v.SelectModifier = d.Viewer.SelectModifier
	}
	if v.QueryModifier == "" {
		v.QueryModifier = d.Viewer.QueryModifier
	}
	if v.SelectModifier == v.QueryModifier {
		return fmt.Errorf("select and query modifiers must differ, both are %q", v.SelectModifier)
	}

	t := &c.Transcribe
	if t.Provider == "" {
		t.Provider = d.Transcribe.Provider
	}
	if t.Temperature < 0 || t.Temperature > 2 {
		t.Temperature = d.Transcribe.Temperature
	}
	if t.Prompt == "" {
		t.Prompt = d.Transcribe.Prompt
	}
	if t.MaxSize <= 0 {
		t.MaxSize = d.Transcribe.MaxSize
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("ROIVIEWER_IIIF_BASE"); v != "" {
		c.IIIF.Server = v
	}
	if v, ok := os.LookupEnv("ROIVIEWER_PATH_PREFIX"); ok {
		c.IIIF.PathPrefix = v
	}
	if v := os.Getenv("ROIVIEWER_DEBOUNCE"); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("ROIVIEWER_DEBOUNCE: %w", err)
		}
		c.Viewer.Debounce = d
	}
	if v := os.Getenv("TRANSCRIBE_PROVIDER"); v != "" {
		c.Transcribe.Provider = v
	}
	if v := os.Getenv("TRANSCRIBE_MODEL"); v != "" {
		c.Transcribe.Model = v
	}
	return nil
}

// parseDuration accepts Go durations and bare millisecond counts.
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.Atoi(s); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Load reads configuration from a YAML file. A missing file yields
// DefaultConfig(). Environment overrides are applied and the result is
// validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to path in YAML format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
