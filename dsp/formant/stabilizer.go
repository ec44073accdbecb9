package formant

import (
	"time"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/internal/mathx"
)

// Stabilizer smooths a stream of raw formant pairs. Invalid pairs leave all
// state untouched, so silence holds the last stable pair instead of decaying
// it. Not safe for concurrent use.
type Stabilizer struct {
	cfg Config

	f1Window []float64
	f2Window []float64

	stable   Pair
	lastTime time.Duration
	hasTime  bool
}

// NewStabilizer creates a stabilizer with the given options.
func NewStabilizer(opts ...Option) (*Stabilizer, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Stabilizer{
		cfg:      cfg,
		f1Window: make([]float64, 0, cfg.WindowSize),
		f2Window: make([]float64, 0, cfg.WindowSize),
	}, nil
}

// Config returns the stabilizer configuration.
func (s *Stabilizer) Config() Config {
	return s.cfg
}

// Stable returns the current stable pair.
func (s *Stabilizer) Stable() Pair {
	return s.stable
}

// Reset clears all temporal state.
func (s *Stabilizer) Reset() {
	s.f1Window = s.f1Window[:0]
	s.f2Window = s.f2Window[:0]
	s.stable = Pair{}
	s.lastTime = 0
	s.hasTime = false
}

// Update folds raw, observed at now, into the state. It returns the stable
// pair and whether raw was accepted.
func (s *Stabilizer) Update(raw Pair, now time.Duration) (Pair, bool) {
	if !s.cfg.ValidPair(raw) {
		return s.stable, false
	}

	s.f1Window = pushWindow(s.f1Window, raw.F1.Hz(), s.cfg.WindowSize)
	s.f2Window = pushWindow(s.f2Window, raw.F2.Hz(), s.cfg.WindowSize)

	f1 := limitJump(s.stable.F1, core.Median(s.f1Window), s.cfg.MaxJumpF1Hz)
	f2 := limitJump(s.stable.F2, core.Median(s.f2Window), s.cfg.MaxJumpF2Hz)

	dt := s.cfg.UpdateInterval
	if s.hasTime && now-s.lastTime > dt {
		dt = now - s.lastTime
	}
	alpha := 1 - mathx.Exp(-dt.Seconds()/s.cfg.TimeConstant.Seconds())

	s.stable = Pair{
		F1: smooth(s.stable.F1, f1, alpha),
		F2: smooth(s.stable.F2, f2, alpha),
	}
	s.lastTime = now
	s.hasTime = true
	return s.stable, true
}

func pushWindow(w []float64, v float64, size int) []float64 {
	if len(w) == size {
		copy(w, w[1:])
		w = w[:len(w)-1]
	}
	return append(w, v)
}

// limitJump clamps the change from previous to next to maxJump.
func limitJump(previous core.Freq, next, maxJump float64) float64 {
	prev, ok := previous.Get()
	if !ok {
		return next
	}
	return prev + core.Clamp(next-prev, -maxJump, maxJump)
}

func smooth(previous core.Freq, next, alpha float64) core.Freq {
	prev, ok := previous.Get()
	if !ok {
		return core.Some(next)
	}
	return core.Some(prev + alpha*(next-prev))
}
