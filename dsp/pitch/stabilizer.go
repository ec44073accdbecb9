package pitch

import (
	"fmt"
	"math"

	"github.com/TomokaItou/voice-training/dsp/core"
)

// State is the voicing state of a Stabilizer.
type State int

const (
	// Unvoiced emits no pitch.
	Unvoiced State = iota
	// Onset is accumulating consecutive reliable samples.
	Onset
	// Voiced emits the smoothed pitch.
	Voiced
	// Hold is voiced but bridging unreliable samples.
	Hold
)

func (s State) String() string {
	switch s {
	case Unvoiced:
		return "unvoiced"
	case Onset:
		return "onset"
	case Voiced:
		return "voiced"
	case Hold:
		return "hold"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Output is the stabilized result of one update.
type Output struct {
	Pitch      core.Freq
	Confidence float64
	State      State
	// Released is set on the update that returned the stabilizer to
	// Unvoiced after sustained loss.
	Released bool
	// Pending is set while a large jump waits for confirmation.
	Pending bool
}

// Stabilizer turns a stream of raw estimates into a stable contour. It owns
// all temporal state for one session and is not safe for concurrent use.
type Stabilizer struct {
	cfg Config

	window []float64

	lastStable core.Freq
	smoothed   core.Freq
	pending    core.Freq

	pendingFrames    int
	holdCounter      int
	voicedStable     bool
	voicedFrames     int
	voicedLostFrames int
	state            State
}

// NewStabilizer creates a stabilizer with the given options.
func NewStabilizer(opts ...Option) (*Stabilizer, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Stabilizer{
		cfg:    cfg,
		window: make([]float64, 0, cfg.MedianWindow),
	}, nil
}

// Config returns the stabilizer configuration.
func (s *Stabilizer) Config() Config {
	return s.cfg
}

// State returns the current voicing state.
func (s *Stabilizer) State() State {
	return s.state
}

// LastStable returns the last accepted pitch.
func (s *Stabilizer) LastStable() core.Freq {
	return s.lastStable
}

// Reset clears all temporal state.
func (s *Stabilizer) Reset() {
	s.window = s.window[:0]
	s.lastStable = core.None()
	s.smoothed = core.None()
	s.pending = core.None()
	s.pendingFrames = 0
	s.holdCounter = 0
	s.voicedStable = false
	s.voicedFrames = 0
	s.voicedLostFrames = 0
	s.state = Unvoiced
}

// Reliable reports whether e counts as a usable sample in the current
// state: a pitch inside the range with confidence above the onset threshold
// while unvoiced, or the sustain threshold while voiced.
func (s *Stabilizer) Reliable(e Estimate) bool {
	if !e.Pitch.InRange(s.cfg.MinHz, s.cfg.MaxHz) {
		return false
	}
	threshold := s.cfg.OnsetThreshold
	if s.voicedStable {
		threshold = s.cfg.SustainThreshold
	}
	return e.Confidence >= threshold
}

// Update folds one raw estimate into the state and returns what to display.
func (s *Stabilizer) Update(e Estimate) Output {
	if !s.Reliable(e) {
		return s.unreliable(e)
	}

	s.holdCounter = 0
	s.voicedLostFrames = 0
	s.push(e.Pitch.Hz())

	if !s.voicedStable {
		s.voicedFrames++
		if s.voicedFrames < s.cfg.OnsetFrames {
			s.state = Onset
			return Output{Pitch: core.None(), Confidence: e.Confidence, State: Onset}
		}
		s.voicedStable = true
	}
	s.state = Voiced

	candidate := s.cfg.SelectCandidate(core.Median(s.window), s.lastStable)
	maxJump := s.cfg.MaxJump(s.lastStable)

	ref, hasRef := s.lastStable.Get()
	if !hasRef || math.Abs(candidate-ref) <= maxJump {
		s.accept(candidate)
		return Output{Pitch: s.smoothed, Confidence: e.Confidence, State: Voiced}
	}

	if p, ok := s.pending.Get(); ok && math.Abs(candidate-p) <= maxJump {
		s.pendingFrames++
	} else {
		s.pendingFrames = 1
	}
	s.pending = core.Some(candidate)

	if s.pendingFrames >= s.cfg.TransitionConfirmFrames {
		s.lastStable = s.pending
		s.smoothed = s.pending
		s.clearPending()
		return Output{Pitch: s.smoothed, Confidence: e.Confidence, State: Voiced}
	}

	return Output{Pitch: s.smoothed, Confidence: e.Confidence, State: Voiced, Pending: true}
}

func (s *Stabilizer) unreliable(e Estimate) Output {
	s.clearPending()
	s.voicedFrames = 0

	if !s.voicedStable {
		s.state = Unvoiced
		return Output{Pitch: core.None(), Confidence: e.Confidence, State: Unvoiced}
	}

	s.holdCounter++
	s.voicedLostFrames++

	if s.voicedLostFrames >= s.cfg.ReleaseFrames {
		s.voicedStable = false
		s.state = Unvoiced
		s.smoothed = core.None()
		s.window = s.window[:0]
		return Output{Pitch: core.None(), Confidence: e.Confidence, State: Unvoiced, Released: true}
	}

	s.state = Hold
	if s.holdCounter <= s.cfg.HoldFrames {
		return Output{Pitch: s.smoothed, Confidence: e.Confidence, State: Hold}
	}
	return Output{Pitch: core.None(), Confidence: e.Confidence, State: Hold}
}

func (s *Stabilizer) accept(candidate float64) {
	s.lastStable = core.Some(candidate)
	if prev, ok := s.smoothed.Get(); ok {
		s.smoothed = core.Some(prev + s.cfg.SmoothingAlpha*(candidate-prev))
	} else {
		s.smoothed = core.Some(candidate)
	}
	s.clearPending()
}

func (s *Stabilizer) push(hz float64) {
	if len(s.window) == s.cfg.MedianWindow {
		copy(s.window, s.window[1:])
		s.window = s.window[:len(s.window)-1]
	}
	s.window = append(s.window, hz)
}

func (s *Stabilizer) clearPending() {
	s.pending = core.None()
	s.pendingFrames = 0
}
