package formant

import (
	"errors"
	"fmt"
	"time"
)

const (
	defaultF1MinHz          = 200.0
	defaultF1MaxHz          = 1000.0
	defaultF2MinHz          = 700.0
	defaultF2MaxHz          = 3000.0
	defaultMinSeparationHz  = 150.0
	defaultSmoothingHz      = 120.0
	defaultSilenceFloorDB   = -120.0
	defaultWindowSize       = 5
	defaultMaxJumpF1Hz      = 90.0
	defaultMaxJumpF2Hz      = 160.0
	defaultUpdateInterval   = 150 * time.Millisecond
	defaultSmoothingTimeTau = 450 * time.Millisecond
)

// Range is a closed frequency interval in Hz.
type Range struct {
	MinHz float64
	MaxHz float64
}

// Contains reports whether hz lies in the closed interval.
func (r Range) Contains(hz float64) bool {
	return hz >= r.MinHz && hz <= r.MaxHz
}

// Config holds formant estimation and stabilization parameters.
type Config struct {
	F1 Range
	F2 Range
	// MinSeparationHz is the smallest accepted F2-F1 distance.
	MinSeparationHz float64

	// SmoothingHz is the bandwidth of the moving average applied to the
	// dB spectrum before peak picking.
	SmoothingHz float64
	// Smoothed values at or below SilenceFloorDB never count as a peak.
	SilenceFloorDB float64

	WindowSize  int
	MaxJumpF1Hz float64
	MaxJumpF2Hz float64

	// UpdateInterval is the nominal analysis cadence. It is also the
	// smallest time step used for smoothing.
	UpdateInterval time.Duration
	TimeConstant   time.Duration
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		F1:              Range{MinHz: defaultF1MinHz, MaxHz: defaultF1MaxHz},
		F2:              Range{MinHz: defaultF2MinHz, MaxHz: defaultF2MaxHz},
		MinSeparationHz: defaultMinSeparationHz,
		SmoothingHz:     defaultSmoothingHz,
		SilenceFloorDB:  defaultSilenceFloorDB,
		WindowSize:      defaultWindowSize,
		MaxJumpF1Hz:     defaultMaxJumpF1Hz,
		MaxJumpF2Hz:     defaultMaxJumpF2Hz,
		UpdateInterval:  defaultUpdateInterval,
		TimeConstant:    defaultSmoothingTimeTau,
	}
}

// ApplyOptions applies opts over the defaults. Nil options are skipped.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithRanges sets the F1 and F2 search ranges.
func WithRanges(f1, f2 Range) Option {
	return func(cfg *Config) {
		if f1.MinHz > 0 && f1.MaxHz > f1.MinHz && f2.MinHz > 0 && f2.MaxHz > f2.MinHz {
			cfg.F1 = f1
			cfg.F2 = f2
		}
	}
}

// WithSmoothingBandwidth sets the spectral smoothing width in Hz.
func WithSmoothingBandwidth(hz float64) Option {
	return func(cfg *Config) {
		if hz > 0 {
			cfg.SmoothingHz = hz
		}
	}
}

// WithWindowSize sets the rolling median length.
func WithWindowSize(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.WindowSize = n
		}
	}
}

// WithMaxJump sets the per-update delta limits.
func WithMaxJump(f1Hz, f2Hz float64) Option {
	return func(cfg *Config) {
		if f1Hz > 0 && f2Hz > 0 {
			cfg.MaxJumpF1Hz = f1Hz
			cfg.MaxJumpF2Hz = f2Hz
		}
	}
}

// WithTiming sets the update interval and smoothing time constant.
func WithTiming(interval, tau time.Duration) Option {
	return func(cfg *Config) {
		if interval > 0 && tau > 0 {
			cfg.UpdateInterval = interval
			cfg.TimeConstant = tau
		}
	}
}

// Validate reports every inconsistent field.
func (c Config) Validate() error {
	var errs []error
	if c.F1.MinHz <= 0 || c.F1.MaxHz <= c.F1.MinHz {
		errs = append(errs, fmt.Errorf("f1 range [%g, %g] is empty", c.F1.MinHz, c.F1.MaxHz))
	}
	if c.F2.MinHz <= 0 || c.F2.MaxHz <= c.F2.MinHz {
		errs = append(errs, fmt.Errorf("f2 range [%g, %g] is empty", c.F2.MinHz, c.F2.MaxHz))
	}
	if c.MinSeparationHz < 0 {
		errs = append(errs, fmt.Errorf("min separation must be >= 0: %g", c.MinSeparationHz))
	}
	if c.SmoothingHz <= 0 {
		errs = append(errs, fmt.Errorf("smoothing bandwidth must be > 0: %g", c.SmoothingHz))
	}
	if c.WindowSize <= 0 {
		errs = append(errs, fmt.Errorf("window size must be > 0: %d", c.WindowSize))
	}
	if c.MaxJumpF1Hz <= 0 || c.MaxJumpF2Hz <= 0 {
		errs = append(errs, fmt.Errorf("max jumps must be > 0: %g, %g", c.MaxJumpF1Hz, c.MaxJumpF2Hz))
	}
	if c.UpdateInterval <= 0 {
		errs = append(errs, fmt.Errorf("update interval must be > 0: %v", c.UpdateInterval))
	}
	if c.TimeConstant <= 0 {
		errs = append(errs, fmt.Errorf("time constant must be > 0: %v", c.TimeConstant))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
