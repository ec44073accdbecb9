package spectrum

import (
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/TomokaItou/voice-training/dsp/window"
	"github.com/TomokaItou/voice-training/internal/fftplan"
)

const (
	defaultFFTSize   = 4096
	defaultSmoothing = 0.8
	defaultMinDB     = -130.0
)

// AnalyzerConfig holds the analyser settings.
type AnalyzerConfig struct {
	FFTSize   int
	Smoothing float64
	MinDB     float64
	Window    window.Type
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*AnalyzerConfig)

// DefaultAnalyzerConfig returns a 4096-point Blackman analyser with 0.8
// time smoothing and a -130 dB floor.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		FFTSize:   defaultFFTSize,
		Smoothing: defaultSmoothing,
		MinDB:     defaultMinDB,
		Window:    window.TypeBlackman,
	}
}

// WithFFTSize sets the transform size. Sizes that are not a power of two
// between 32 and 32768 are ignored.
func WithFFTSize(n int) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		if n >= 32 && n <= 32768 && n&(n-1) == 0 {
			cfg.FFTSize = n
		}
	}
}

// WithSmoothing sets the time-smoothing constant in [0, 1).
func WithSmoothing(v float64) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		if v >= 0 && v < 1 {
			cfg.Smoothing = v
		}
	}
}

// WithMinDB sets the dB floor.
func WithMinDB(db float64) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		if !math.IsNaN(db) && !math.IsInf(db, 0) {
			cfg.MinDB = db
		}
	}
}

// WithWindow sets the analysis window.
func WithWindow(t window.Type) AnalyzerOption {
	return func(cfg *AnalyzerConfig) {
		cfg.Window = t
	}
}

// ApplyAnalyzerOptions applies options to the default config.
func ApplyAnalyzerOptions(opts ...AnalyzerOption) AnalyzerConfig {
	cfg := DefaultAnalyzerConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Analyzer keeps the most recent FFTSize samples of a stream and turns them
// into a time-smoothed dB spectrum on demand. It is not safe for concurrent
// use.
type Analyzer struct {
	sampleRate float64
	cfg        AnalyzerConfig

	win  []float64
	plan *algofft.Plan[complex128]
	in   []complex128
	out  []complex128

	ring   []float64
	write  int
	filled int

	mag      []float64
	smoothed []float64
	ready    bool
}

// NewAnalyzer creates an analyser for a stream at sampleRate.
func NewAnalyzer(sampleRate float64, opts ...AnalyzerOption) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spectrum: sample rate must be positive and finite: %v", sampleRate)
	}

	cfg := ApplyAnalyzerOptions(opts...)

	plan, err := algofft.NewPlan64(cfg.FFTSize)
	if err != nil {
		return nil, fmt.Errorf("spectrum: init fft plan: %w", err)
	}

	bins := cfg.FFTSize/2 + 1
	return &Analyzer{
		sampleRate: sampleRate,
		cfg:        cfg,
		win:        window.Generate(cfg.Window, cfg.FFTSize, window.WithPeriodic()),
		plan:       plan,
		in:         make([]complex128, cfg.FFTSize),
		out:        make([]complex128, cfg.FFTSize),
		ring:       make([]float64, cfg.FFTSize),
		mag:        make([]float64, bins),
		smoothed:   make([]float64, bins),
	}, nil
}

// Config returns the analyser settings.
func (a *Analyzer) Config() AnalyzerConfig {
	return a.cfg
}

// SampleRate returns the stream sample rate.
func (a *Analyzer) SampleRate() float64 {
	return a.sampleRate
}

// Write appends samples to the analysis ring, overwriting the oldest.
func (a *Analyzer) Write(samples []float64) {
	n := a.cfg.FFTSize
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	for _, s := range samples {
		a.ring[a.write] = s
		a.write++
		if a.write >= n {
			a.write = 0
		}
	}
	a.filled = min(n, a.filled+len(samples))
}

// Buffered returns how many samples of the ring hold real input.
func (a *Analyzer) Buffered() int {
	return a.filled
}

// Frame copies the most recent FFTSize samples, oldest first, into dst and
// returns it. Missing history reads as zeros.
func (a *Analyzer) Frame(dst []float64) []float64 {
	n := a.cfg.FFTSize
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]
	read := a.write
	for i := range dst {
		dst[i] = a.ring[read]
		read++
		if read >= n {
			read = 0
		}
	}
	return dst
}

// Magnitudes transforms the current ring contents and returns a new
// Spectrum. Successive calls are smoothed with the configured constant.
func (a *Analyzer) Magnitudes() Spectrum {
	read := a.write
	for i := range a.in {
		a.in[i] = complex(a.ring[read]*a.win[i], 0)
		read++
		if read >= a.cfg.FFTSize {
			read = 0
		}
	}

	db := make([]float64, len(a.mag))
	if err := a.plan.Forward(a.out, a.in); err != nil {
		for i := range db {
			db[i] = a.cfg.MinDB
		}
		return Spectrum{DB: db, BinHz: a.binHz(), FFTSize: a.cfg.FFTSize}
	}

	Magnitude(a.mag, a.out)
	scale := 1 / float64(a.cfg.FFTSize)
	for k, m := range a.mag {
		m *= scale
		if a.ready {
			m = a.cfg.Smoothing*a.smoothed[k] + (1-a.cfg.Smoothing)*m
		}
		a.smoothed[k] = m
	}
	a.ready = true

	copy(db, a.smoothed)
	ToDB(db, a.cfg.MinDB)
	return Spectrum{DB: db, BinHz: a.binHz(), FFTSize: a.cfg.FFTSize}
}

// Reset clears the ring and smoothing history.
func (a *Analyzer) Reset() {
	clear(a.ring)
	clear(a.smoothed)
	a.write = 0
	a.filled = 0
	a.ready = false
}

func (a *Analyzer) binHz() float64 {
	return BinResolution(a.sampleRate, a.cfg.FFTSize)
}

// Transform computes an unsmoothed Blackman-windowed dB spectrum of a single
// frame, zero-padded to fftSize. Frames longer than fftSize are truncated to
// their most recent fftSize samples.
func Transform(frame []float64, sampleRate float64, fftSize int, minDB float64) (Spectrum, error) {
	if sampleRate <= 0 {
		return Spectrum{}, fmt.Errorf("spectrum: sample rate must be > 0: %v", sampleRate)
	}
	if fftSize <= 0 || fftSize&(fftSize-1) != 0 {
		return Spectrum{}, fmt.Errorf("spectrum: fft size must be a power of two: %d", fftSize)
	}
	if len(frame) > fftSize {
		frame = frame[len(frame)-fftSize:]
	}

	win := window.Generate(window.TypeBlackman, len(frame), window.WithPeriodic())
	in := make([]complex128, fftSize)
	out := make([]complex128, fftSize)
	for i, s := range frame {
		in[i] = complex(s*win[i], 0)
	}

	err := fftplan.Shared().Do(fftSize, func(plan *algofft.Plan[complex128]) error {
		return plan.Forward(out, in)
	})
	if err != nil {
		return Spectrum{}, fmt.Errorf("spectrum: forward FFT failed: %w", err)
	}

	db := make([]float64, fftSize/2+1)
	Magnitude(db, out)
	if len(frame) > 0 {
		scale := 1 / float64(len(frame))
		for k := range db {
			db[k] *= scale
		}
	}
	ToDB(db, minDB)

	return Spectrum{DB: db, BinHz: BinResolution(sampleRate, fftSize), FFTSize: fftSize}, nil
}
