package viewer

import (
	"log/slog"
	"time"

	"github.com/lehigh-university-libraries/roiviewer/internal/config"
	"github.com/lehigh-university-libraries/roiviewer/internal/interaction"
	"github.com/lehigh-university-libraries/roiviewer/internal/scheduler"
	"github.com/lehigh-university-libraries/roiviewer/internal/viewport"
)

// DefaultWheelStep is the zoom factor of one wheel notch.
const DefaultWheelStep = 1.15

// Options configure one Viewer.
type Options struct {
	Limits       viewport.Limits
	Debounce     time.Duration
	WheelStep    float64
	MinSelection float64
	Keymap       interaction.Keymap

	// Clock drives the fetch debounce; nil uses the wall clock.
	Clock scheduler.Clock
	// Observer receives every finished fetch, including stale ones.
	Observer func(scheduler.Event)
	Logger   *slog.Logger
}

// DefaultOptions returns the standard viewer tuning.
func DefaultOptions() Options {
	return Options{
		Limits:       viewport.DefaultLimits(),
		Debounce:     scheduler.DefaultDebounce,
		WheelStep:    DefaultWheelStep,
		MinSelection: interaction.DefaultMinSelection,
		Keymap:       interaction.DefaultKeymap(),
	}
}

// OptionsFromConfig builds viewer options from a validated configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	if cfg == nil {
		return opts
	}
	v := cfg.Viewer
	opts.Limits = viewport.Limits{MinFactor: v.MinZoomFactor, MaxFactor: v.MaxZoomFactor}
	opts.Debounce = v.Debounce
	opts.WheelStep = v.WheelStep
	opts.MinSelection = v.MinSelection
	opts.Keymap = interaction.Keymap{Select: v.SelectModifier, Query: v.QueryModifier}
	return opts
}

func (o *Options) normalize() {
	def := DefaultOptions()
	if o.WheelStep <= 1 {
		o.WheelStep = def.WheelStep
	}
	if o.Keymap.Select == "" && o.Keymap.Query == "" {
		o.Keymap = def.Keymap
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}
