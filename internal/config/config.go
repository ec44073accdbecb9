// Package config loads the YAML configuration of the command line tools and
// turns it into component options.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TomokaItou/voice-training/dsp/formant"
	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
	"github.com/TomokaItou/voice-training/dsp/window"
	"github.com/TomokaItou/voice-training/track"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// PitchConfig mirrors the tunables of pitch estimation and stabilization.
type PitchConfig struct {
	Algorithm               pitch.Algorithm `yaml:"algorithm"`
	MinHz                   float64         `yaml:"min_hz"`
	MaxHz                   float64         `yaml:"max_hz"`
	EnergyThreshold         float64         `yaml:"energy_threshold"`
	EnergyReference         float64         `yaml:"energy_reference"`
	PeakTolerance           float64         `yaml:"peak_tolerance"`
	OnsetThreshold          float64         `yaml:"onset_threshold"`
	SustainThreshold        float64         `yaml:"sustain_threshold"`
	MedianWindow            int             `yaml:"median_window"`
	MaxJumpHz               float64         `yaml:"max_jump_hz"`
	MaxJumpCents            float64         `yaml:"max_jump_cents"`
	SmoothingAlpha          float64         `yaml:"smoothing_alpha"`
	OnsetFrames             int             `yaml:"onset_frames"`
	HoldFrames              int             `yaml:"hold_frames"`
	ReleaseFrames           int             `yaml:"release_frames"`
	TransitionConfirmFrames int             `yaml:"transition_confirm_frames"`
}

// FormantConfig mirrors the formant tunables.
type FormantConfig struct {
	Enabled         bool          `yaml:"enabled"`
	F1MinHz         float64       `yaml:"f1_min_hz"`
	F1MaxHz         float64       `yaml:"f1_max_hz"`
	F2MinHz         float64       `yaml:"f2_min_hz"`
	F2MaxHz         float64       `yaml:"f2_max_hz"`
	MinSeparationHz float64       `yaml:"min_separation_hz"`
	SmoothingHz     float64       `yaml:"smoothing_hz"`
	WindowSize      int           `yaml:"window_size"`
	MaxJumpF1Hz     float64       `yaml:"max_jump_f1_hz"`
	MaxJumpF2Hz     float64       `yaml:"max_jump_f2_hz"`
	UpdateInterval  time.Duration `yaml:"update_interval"`
	TimeConstant    time.Duration `yaml:"time_constant"`
}

// BatchConfig controls offline analysis.
type BatchConfig struct {
	Frame            time.Duration `yaml:"frame"`
	Hop              time.Duration `yaml:"hop"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	MaxDuration      time.Duration `yaml:"max_duration"`
	Mode             track.Mode    `yaml:"mode"`
	KeepPartial      bool          `yaml:"keep_partial"`
}

// LiveConfig controls the live tick loop.
type LiveConfig struct {
	PitchInterval time.Duration `yaml:"pitch_interval"`
	History       time.Duration `yaml:"history"`
}

// SpectrumConfig configures the streaming analyser.
type SpectrumConfig struct {
	FFTSize   int     `yaml:"fft_size"`
	Smoothing float64 `yaml:"smoothing"`
	MinDB     float64 `yaml:"min_db"`
	Window    string  `yaml:"window"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// ServerConfig configures the live analysis server.
type ServerConfig struct {
	Addr       string  `yaml:"addr"`
	SampleRate float64 `yaml:"sample_rate"`
	// SendBuffer bounds the messages queued per client.
	SendBuffer int `yaml:"send_buffer"`
}

// Config is the whole file.
type Config struct {
	Pitch    PitchConfig    `yaml:"pitch"`
	Formant  FormantConfig  `yaml:"formant"`
	Batch    BatchConfig    `yaml:"batch"`
	Live     LiveConfig     `yaml:"live"`
	Spectrum SpectrumConfig `yaml:"spectrum"`
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	p := pitch.DefaultConfig()
	f := formant.DefaultConfig()
	b := track.DefaultBatchConfig()
	l := track.DefaultLiveConfig()
	a := spectrum.DefaultAnalyzerConfig()
	return Config{
		Pitch: PitchConfig{
			Algorithm:               p.Algorithm,
			MinHz:                   p.MinHz,
			MaxHz:                   p.MaxHz,
			EnergyThreshold:         p.EnergyThreshold,
			EnergyReference:         p.EnergyReference,
			PeakTolerance:           p.PeakTolerance,
			OnsetThreshold:          p.OnsetThreshold,
			SustainThreshold:        p.SustainThreshold,
			MedianWindow:            p.MedianWindow,
			MaxJumpHz:               p.MaxJumpHz,
			MaxJumpCents:            p.MaxJumpCents,
			SmoothingAlpha:          p.SmoothingAlpha,
			OnsetFrames:             p.OnsetFrames,
			HoldFrames:              p.HoldFrames,
			ReleaseFrames:           p.ReleaseFrames,
			TransitionConfirmFrames: p.TransitionConfirmFrames,
		},
		Formant: FormantConfig{
			Enabled:         true,
			F1MinHz:         f.F1.MinHz,
			F1MaxHz:         f.F1.MaxHz,
			F2MinHz:         f.F2.MinHz,
			F2MaxHz:         f.F2.MaxHz,
			MinSeparationHz: f.MinSeparationHz,
			SmoothingHz:     f.SmoothingHz,
			WindowSize:      f.WindowSize,
			MaxJumpF1Hz:     f.MaxJumpF1Hz,
			MaxJumpF2Hz:     f.MaxJumpF2Hz,
			UpdateInterval:  f.UpdateInterval,
			TimeConstant:    f.TimeConstant,
		},
		Batch: BatchConfig{
			Frame:            b.FrameDuration,
			Hop:              b.HopDuration,
			ProgressInterval: b.ProgressInterval,
			MaxDuration:      b.MaxDuration,
			Mode:             b.Mode,
		},
		Live: LiveConfig{
			PitchInterval: l.PitchInterval,
			History:       l.History,
		},
		Spectrum: SpectrumConfig{
			FFTSize:   a.FFTSize,
			Smoothing: a.Smoothing,
			MinDB:     a.MinDB,
			Window:    a.Window.String(),
		},
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:       ":8080",
			SampleRate: 48000,
			SendBuffer: 64,
		},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML from r over the defaults and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every inconsistent setting.
func (c Config) Validate() error {
	var errs []error
	if err := c.pitchConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.formantConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Batch.Frame <= 0 || c.Batch.Hop <= 0 || c.Batch.Hop > c.Batch.Frame {
		errs = append(errs, fmt.Errorf("batch: need 0 < hop <= frame, got frame %v hop %v", c.Batch.Frame, c.Batch.Hop))
	}
	if c.Batch.ProgressInterval <= 0 || c.Batch.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("batch: progress interval and max duration must be > 0"))
	}
	if c.Live.PitchInterval <= 0 || c.Live.History <= 0 {
		errs = append(errs, fmt.Errorf("live: pitch interval and history must be > 0"))
	}
	if n := c.Spectrum.FFTSize; n < 32 || n > 32768 || n&(n-1) != 0 {
		errs = append(errs, fmt.Errorf("spectrum: fft size must be a power of two in [32, 32768]: %d", n))
	}
	if c.Spectrum.Smoothing < 0 || c.Spectrum.Smoothing >= 1 {
		errs = append(errs, fmt.Errorf("spectrum: smoothing must be in [0, 1): %g", c.Spectrum.Smoothing))
	}
	if _, err := window.ParseType(c.Spectrum.Window); err != nil {
		errs = append(errs, fmt.Errorf("spectrum: %w", err))
	}
	if c.Server.SampleRate <= 0 || c.Server.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("server: sample rate and send buffer must be > 0"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (c Config) pitchConfig() pitch.Config {
	p := pitch.DefaultConfig()
	p.Algorithm = c.Pitch.Algorithm
	p.MinHz = c.Pitch.MinHz
	p.MaxHz = c.Pitch.MaxHz
	p.EnergyThreshold = c.Pitch.EnergyThreshold
	p.EnergyReference = c.Pitch.EnergyReference
	p.PeakTolerance = c.Pitch.PeakTolerance
	p.OnsetThreshold = c.Pitch.OnsetThreshold
	p.SustainThreshold = c.Pitch.SustainThreshold
	p.MedianWindow = c.Pitch.MedianWindow
	p.MaxJumpHz = c.Pitch.MaxJumpHz
	p.MaxJumpCents = c.Pitch.MaxJumpCents
	p.SmoothingAlpha = c.Pitch.SmoothingAlpha
	p.OnsetFrames = c.Pitch.OnsetFrames
	p.HoldFrames = c.Pitch.HoldFrames
	p.ReleaseFrames = c.Pitch.ReleaseFrames
	p.TransitionConfirmFrames = c.Pitch.TransitionConfirmFrames
	return p
}

func (c Config) formantConfig() formant.Config {
	f := formant.DefaultConfig()
	f.F1 = formant.Range{MinHz: c.Formant.F1MinHz, MaxHz: c.Formant.F1MaxHz}
	f.F2 = formant.Range{MinHz: c.Formant.F2MinHz, MaxHz: c.Formant.F2MaxHz}
	f.MinSeparationHz = c.Formant.MinSeparationHz
	f.SmoothingHz = c.Formant.SmoothingHz
	f.WindowSize = c.Formant.WindowSize
	f.MaxJumpF1Hz = c.Formant.MaxJumpF1Hz
	f.MaxJumpF2Hz = c.Formant.MaxJumpF2Hz
	f.UpdateInterval = c.Formant.UpdateInterval
	f.TimeConstant = c.Formant.TimeConstant
	return f
}

// PitchOptions returns the pitch configuration as options.
func (c Config) PitchOptions() []pitch.Option {
	return []pitch.Option{pitch.WithConfig(c.pitchConfig())}
}

// FormantOptions returns the formant configuration as options.
func (c Config) FormantOptions() []formant.Option {
	return []formant.Option{formant.WithConfig(c.formantConfig())}
}

// SessionOptions returns the track session options of the file.
func (c Config) SessionOptions() []track.SessionOption {
	return []track.SessionOption{
		track.WithPitchOptions(c.PitchOptions()...),
		track.WithFormantOptions(c.FormantOptions()...),
		track.WithFormants(c.Formant.Enabled),
	}
}

// BatchOptions returns the batch runner options.
func (c Config) BatchOptions() []track.BatchOption {
	b := track.DefaultBatchConfig()
	b.FrameDuration = c.Batch.Frame
	b.HopDuration = c.Batch.Hop
	b.FormantInterval = c.Formant.UpdateInterval
	b.ProgressInterval = c.Batch.ProgressInterval
	b.MaxDuration = c.Batch.MaxDuration
	b.FFTSize = c.Spectrum.FFTSize
	b.Mode = c.Batch.Mode
	b.KeepPartial = c.Batch.KeepPartial
	return []track.BatchOption{track.WithBatchConfig(b)}
}

// LiveOptions returns the live loop options.
func (c Config) LiveOptions() []track.LiveOption {
	return []track.LiveOption{track.WithLiveConfig(track.LiveConfig{
		PitchInterval:   c.Live.PitchInterval,
		FormantInterval: c.Formant.UpdateInterval,
		History:         c.Live.History,
	})}
}

// AnalyzerOptions returns the streaming analyser options.
func (c Config) AnalyzerOptions() []spectrum.AnalyzerOption {
	win, _ := window.ParseType(c.Spectrum.Window)
	return []spectrum.AnalyzerOption{
		spectrum.WithFFTSize(c.Spectrum.FFTSize),
		spectrum.WithSmoothing(c.Spectrum.Smoothing),
		spectrum.WithMinDB(c.Spectrum.MinDB),
		spectrum.WithWindow(win),
	}
}
