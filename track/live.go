package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
)

const (
	defaultPitchInterval   = 100 * time.Millisecond
	defaultFormantInterval = 150 * time.Millisecond
	defaultHistory         = 12 * time.Second
)

// LiveConfig controls the live tick loop.
type LiveConfig struct {
	// PitchInterval is the minimum time between pitch updates.
	PitchInterval time.Duration
	// FormantInterval is the minimum time between formant updates.
	FormantInterval time.Duration
	// History is how much contour the loop retains.
	History time.Duration
}

// LiveOption mutates a LiveConfig.
type LiveOption func(*LiveConfig)

// DefaultLiveConfig returns the default live timing.
func DefaultLiveConfig() LiveConfig {
	return LiveConfig{
		PitchInterval:   defaultPitchInterval,
		FormantInterval: defaultFormantInterval,
		History:         defaultHistory,
	}
}

// WithLiveConfig replaces the whole configuration.
func WithLiveConfig(c LiveConfig) LiveOption {
	return func(cfg *LiveConfig) {
		*cfg = c
	}
}

// WithIntervals sets the pitch and formant update intervals.
func WithIntervals(pitchEvery, formantEvery time.Duration) LiveOption {
	return func(cfg *LiveConfig) {
		if pitchEvery > 0 && formantEvery > 0 {
			cfg.PitchInterval = pitchEvery
			cfg.FormantInterval = formantEvery
		}
	}
}

// WithHistory sets how much contour is retained.
func WithHistory(d time.Duration) LiveOption {
	return func(cfg *LiveConfig) {
		if d > 0 {
			cfg.History = d
		}
	}
}

// Live drives a session from a stream, one frame per tick. Tick and Run
// must be called from one goroutine; Contour may be read concurrently.
type Live struct {
	session *Session
	frames  FrameSource
	spectra SpectrumSource
	cfg     LiveConfig

	frame []float64

	started     bool
	start       time.Time
	lastPitch   time.Time
	lastFormant time.Time
	hasFormant  bool

	mu      sync.Mutex
	contour Contour
}

// NewLive creates a live loop reading frames and spectra from the given
// sources. A StreamBuffer serves as both.
func NewLive(session *Session, frames FrameSource, spectra SpectrumSource, opts ...LiveOption) (*Live, error) {
	if session == nil || frames == nil || spectra == nil {
		return nil, fmt.Errorf("track: live loop needs a session, a frame source and a spectrum source")
	}
	cfg := DefaultLiveConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.PitchInterval <= 0 || cfg.FormantInterval <= 0 || cfg.History <= 0 {
		return nil, fmt.Errorf("track: live intervals must be > 0: %+v", cfg)
	}
	if err := session.bind(frames.SampleRate()); err != nil {
		return nil, err
	}
	return &Live{
		session: session,
		frames:  frames,
		spectra: spectra,
		cfg:     cfg,
	}, nil
}

// Config returns the loop configuration.
func (l *Live) Config() LiveConfig {
	return l.cfg
}

// Tick runs whatever analysis is due at now. The first tick starts the
// session clock.
func (l *Live) Tick(ctx context.Context, now time.Time) {
	// The analyser smooths on every read, so a tick reads it at most once
	// and shares the result between the HPS and formant paths.
	var (
		spec     spectrum.Spectrum
		haveSpec bool
	)
	magnitudes := func() spectrum.Spectrum {
		if !haveSpec {
			spec = l.spectra.Magnitudes()
			haveSpec = true
		}
		return spec
	}

	if !l.started {
		l.started = true
		l.start = now
		l.session.Reset()
		l.mu.Lock()
		l.contour.Reset()
		l.mu.Unlock()
		l.session.logger.Info("live session started")
		l.pitchUpdate(ctx, now, magnitudes)
	} else if now.Sub(l.lastPitch) >= l.cfg.PitchInterval {
		l.pitchUpdate(ctx, now, magnitudes)
	}

	if l.session.FormantsEnabled() && (!l.hasFormant || now.Sub(l.lastFormant) >= l.cfg.FormantInterval) {
		l.hasFormant = true
		l.lastFormant = now
		sample := l.session.analyzeFormants(ctx, now.Sub(l.start), magnitudes())
		l.mu.Lock()
		l.contour.AppendFormant(sample)
		l.mu.Unlock()
	}
}

func (l *Live) pitchUpdate(ctx context.Context, now time.Time, magnitudes func() spectrum.Spectrum) {
	l.lastPitch = now
	t := now.Sub(l.start)
	l.frame = l.frames.Frame(l.frame)

	var spec spectrum.Spectrum
	if l.session.Algorithm() == pitch.HPS {
		spec = magnitudes()
	}
	sample, ok := l.session.analyzePitch(ctx, "live", t, l.frame, spec)
	if !ok {
		return
	}

	l.mu.Lock()
	l.contour.AppendPitch(sample)
	l.contour.TrimBefore(t - l.cfg.History)
	l.mu.Unlock()
}

// Run ticks on every value from ticks until ctx is done or ticks is closed.
func (l *Live) Run(ctx context.Context, ticks <-chan time.Time) error {
	defer l.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now, ok := <-ticks:
			if !ok {
				return nil
			}
			l.Tick(ctx, now)
		}
	}
}

// Stop ends the session. The contour stays readable until the next tick
// starts a fresh one.
func (l *Live) Stop() {
	if l.started {
		l.session.logger.Info("live session stopped")
	}
	l.started = false
	l.hasFormant = false
	l.session.Reset()
}

// Contour returns a copy of the retained contour.
func (l *Live) Contour() Contour {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.contour.Clone()
}
