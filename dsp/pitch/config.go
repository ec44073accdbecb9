package pitch

import (
	"errors"
	"fmt"
)

const (
	defaultMinHz            = 60.0
	defaultMaxHz            = 1000.0
	defaultEnergyThreshold  = 0.015
	defaultEnergyReference  = 0.05
	defaultMinOffset        = 32
	defaultStrictScore      = 0.9
	defaultPeakTolerance    = 0.02
	defaultKeyMaximumRatio  = 0.9
	defaultHPSFFTSize       = 4096
	defaultOnsetThreshold   = 0.7
	defaultSustainThreshold = 0.45
	defaultMedianWindow     = 5
	defaultMaxJumpHz        = 30.0
	defaultMaxJumpCents     = 50.0
	defaultSmoothingAlpha   = 0.25
	defaultOnsetFrames      = 4
	defaultHoldFrames       = 2
	defaultReleaseFrames    = 3
	defaultConfirmFrames    = 2
	defaultOctaveExempt     = 300.0
	defaultOctaveSnap       = 80.0
)

// Config holds every tunable of pitch estimation and stabilization. It is
// built once from defaults and options and is not modified afterwards.
type Config struct {
	Algorithm Algorithm

	// MinHz and MaxHz bound the accepted pitch range.
	MinHz float64
	MaxHz float64

	// Frames with RMS below EnergyThreshold carry no pitch. Confidence is
	// scaled by min(1, RMS/EnergyReference).
	EnergyThreshold float64
	EnergyReference float64

	// MinOffset is the first AMDF offset searched, in samples.
	MinOffset int
	// StrictScore is the AMDF score a strict detection must exceed.
	StrictScore float64
	// PeakTolerance is how far below the best AMDF score an earlier offset
	// may score and still be preferred.
	PeakTolerance float64
	// KeyMaximumRatio selects the first autocorrelation peak scoring at
	// least this fraction of the global best.
	KeyMaximumRatio float64
	// HPSFFTSize is the transform size used when HPS must compute its own
	// spectrum from the frame.
	HPSFFTSize int

	// OnsetThreshold applies while unvoiced, SustainThreshold once voiced.
	OnsetThreshold   float64
	SustainThreshold float64

	MedianWindow   int
	MaxJumpHz      float64
	MaxJumpCents   float64
	SmoothingAlpha float64

	OnsetFrames             int
	HoldFrames              int
	ReleaseFrames           int
	TransitionConfirmFrames int

	// A raw pitch more than OctaveExemptCents from the reference is a
	// candidate for octave correction; the corrected value is used only if
	// it lands within OctaveSnapCents of the reference.
	OctaveExemptCents float64
	OctaveSnapCents   float64
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Algorithm:               AMDF,
		MinHz:                   defaultMinHz,
		MaxHz:                   defaultMaxHz,
		EnergyThreshold:         defaultEnergyThreshold,
		EnergyReference:         defaultEnergyReference,
		MinOffset:               defaultMinOffset,
		StrictScore:             defaultStrictScore,
		PeakTolerance:           defaultPeakTolerance,
		KeyMaximumRatio:         defaultKeyMaximumRatio,
		HPSFFTSize:              defaultHPSFFTSize,
		OnsetThreshold:          defaultOnsetThreshold,
		SustainThreshold:        defaultSustainThreshold,
		MedianWindow:            defaultMedianWindow,
		MaxJumpHz:               defaultMaxJumpHz,
		MaxJumpCents:            defaultMaxJumpCents,
		SmoothingAlpha:          defaultSmoothingAlpha,
		OnsetFrames:             defaultOnsetFrames,
		HoldFrames:              defaultHoldFrames,
		ReleaseFrames:           defaultReleaseFrames,
		TransitionConfirmFrames: defaultConfirmFrames,
		OctaveExemptCents:       defaultOctaveExempt,
		OctaveSnapCents:         defaultOctaveSnap,
	}
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithConfig replaces the whole configuration. Later options still apply.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithAlgorithm selects the estimation algorithm.
func WithAlgorithm(a Algorithm) Option {
	return func(cfg *Config) {
		if a.Valid() {
			cfg.Algorithm = a
		}
	}
}

// WithRange sets the accepted pitch range.
func WithRange(minHz, maxHz float64) Option {
	return func(cfg *Config) {
		if minHz > 0 && maxHz > minHz {
			cfg.MinHz = minHz
			cfg.MaxHz = maxHz
		}
	}
}

// WithEnergy sets the energy gate threshold and confidence reference.
func WithEnergy(threshold, reference float64) Option {
	return func(cfg *Config) {
		if threshold >= 0 && reference > 0 {
			cfg.EnergyThreshold = threshold
			cfg.EnergyReference = reference
		}
	}
}

// WithThresholds sets the onset and sustain confidence thresholds.
func WithThresholds(onset, sustain float64) Option {
	return func(cfg *Config) {
		if onset >= 0 && onset <= 1 && sustain >= 0 && sustain <= 1 {
			cfg.OnsetThreshold = onset
			cfg.SustainThreshold = sustain
		}
	}
}

// WithMedianWindow sets the rolling median length.
func WithMedianWindow(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MedianWindow = n
		}
	}
}

// WithMaxJump sets the absolute and relative jump limits.
func WithMaxJump(hz, cents float64) Option {
	return func(cfg *Config) {
		if hz > 0 && cents > 0 {
			cfg.MaxJumpHz = hz
			cfg.MaxJumpCents = cents
		}
	}
}

// WithSmoothingAlpha sets the EMA coefficient in (0, 1].
func WithSmoothingAlpha(alpha float64) Option {
	return func(cfg *Config) {
		if alpha > 0 && alpha <= 1 {
			cfg.SmoothingAlpha = alpha
		}
	}
}

// WithHysteresis sets the onset, hold, and release frame counts.
func WithHysteresis(onset, hold, release int) Option {
	return func(cfg *Config) {
		if onset > 0 && hold >= 0 && release > 0 {
			cfg.OnsetFrames = onset
			cfg.HoldFrames = hold
			cfg.ReleaseFrames = release
		}
	}
}

// WithPeakTolerance sets how far below the best AMDF score an earlier
// offset may score and still set the pitch. 0 reports the best offset.
func WithPeakTolerance(tol float64) Option {
	return func(cfg *Config) {
		if tol >= 0 && tol < 1 {
			cfg.PeakTolerance = tol
		}
	}
}

// WithTransitionConfirmFrames sets how many consistent samples commit a
// large pitch jump.
func WithTransitionConfirmFrames(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.TransitionConfirmFrames = n
		}
	}
}

// Validate reports every inconsistent field.
func (c Config) Validate() error {
	var errs []error
	if !c.Algorithm.Valid() {
		errs = append(errs, fmt.Errorf("unknown algorithm %d", int(c.Algorithm)))
	}
	if c.MinHz <= 0 || c.MaxHz <= c.MinHz {
		errs = append(errs, fmt.Errorf("pitch range must satisfy 0 < min < max: [%v, %v]", c.MinHz, c.MaxHz))
	}
	if c.EnergyThreshold < 0 || c.EnergyReference <= 0 {
		errs = append(errs, fmt.Errorf("energy threshold must be >= 0 and reference > 0: %v, %v", c.EnergyThreshold, c.EnergyReference))
	}
	if c.PeakTolerance < 0 || c.PeakTolerance >= 1 {
		errs = append(errs, fmt.Errorf("peak tolerance must be in [0, 1): %v", c.PeakTolerance))
	}
	if c.KeyMaximumRatio <= 0 || c.KeyMaximumRatio > 1 {
		errs = append(errs, fmt.Errorf("key maximum ratio must be in (0, 1]: %v", c.KeyMaximumRatio))
	}
	if c.MinOffset < 1 {
		errs = append(errs, fmt.Errorf("min offset must be >= 1: %d", c.MinOffset))
	}
	if c.HPSFFTSize <= 0 || c.HPSFFTSize&(c.HPSFFTSize-1) != 0 {
		errs = append(errs, fmt.Errorf("hps fft size must be a power of two: %d", c.HPSFFTSize))
	}
	if c.OnsetThreshold < c.SustainThreshold {
		errs = append(errs, fmt.Errorf("onset threshold %v must not be below sustain threshold %v", c.OnsetThreshold, c.SustainThreshold))
	}
	if c.MedianWindow < 1 {
		errs = append(errs, fmt.Errorf("median window must be >= 1: %d", c.MedianWindow))
	}
	if c.SmoothingAlpha <= 0 || c.SmoothingAlpha > 1 {
		errs = append(errs, fmt.Errorf("smoothing alpha must be in (0, 1]: %v", c.SmoothingAlpha))
	}
	if c.OnsetFrames < 1 || c.ReleaseFrames < 1 || c.HoldFrames < 0 || c.TransitionConfirmFrames < 1 {
		errs = append(errs, fmt.Errorf("frame counts out of range: onset=%d hold=%d release=%d confirm=%d",
			c.OnsetFrames, c.HoldFrames, c.ReleaseFrames, c.TransitionConfirmFrames))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
