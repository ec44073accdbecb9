package track

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/formant"
	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
)

type sessionOptions struct {
	logger      *zap.Logger
	metrics     *Metrics
	sink        Sink
	pitchOpts   []pitch.Option
	formantOpts []formant.Option
	formants    bool
}

// SessionOption configures a Session.
type SessionOption func(*sessionOptions)

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) SessionOption {
	return func(o *sessionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the instruments the session records to.
func WithMetrics(m *Metrics) SessionOption {
	return func(o *sessionOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithSink sets where samples and status changes are delivered.
func WithSink(s Sink) SessionOption {
	return func(o *sessionOptions) {
		if s != nil {
			o.sink = s
		}
	}
}

// WithPitchOptions configures pitch estimation and stabilization.
func WithPitchOptions(opts ...pitch.Option) SessionOption {
	return func(o *sessionOptions) {
		o.pitchOpts = append(o.pitchOpts, opts...)
	}
}

// WithFormantOptions configures formant estimation and stabilization.
func WithFormantOptions(opts ...formant.Option) SessionOption {
	return func(o *sessionOptions) {
		o.formantOpts = append(o.formantOpts, opts...)
	}
}

// WithFormants enables formant tracking from the start.
func WithFormants(enabled bool) SessionOption {
	return func(o *sessionOptions) {
		o.formants = enabled
	}
}

// Session owns every estimator and stabilizer of one analysis run. All
// temporal state lives here and is reset as a whole. A Session must be
// driven from a single goroutine.
type Session struct {
	id      string
	logger  *zap.Logger
	metrics *Metrics
	sink    Sink

	pitchOpts  []pitch.Option
	estimator  *pitch.Estimator
	stabilizer *pitch.Stabilizer

	formantEst  *formant.Estimator
	formantStab *formant.Stabilizer
	formantsOn  bool

	broken   bool
	unstable bool
}

// NewSession creates a session. The pitch estimator is bound to a sample
// rate when the first live or batch run starts.
func NewSession(opts ...SessionOption) (*Session, error) {
	o := sessionOptions{
		logger: zap.NewNop(),
		sink:   NopSink{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.metrics == nil {
		o.metrics = NopMetrics()
	}

	stab, err := pitch.NewStabilizer(o.pitchOpts...)
	if err != nil {
		return nil, fmt.Errorf("track: pitch stabilizer: %w", err)
	}
	fest, err := formant.NewEstimator(o.formantOpts...)
	if err != nil {
		return nil, fmt.Errorf("track: formant estimator: %w", err)
	}
	fstab, err := formant.NewStabilizer(o.formantOpts...)
	if err != nil {
		return nil, fmt.Errorf("track: formant stabilizer: %w", err)
	}

	id := uuid.NewString()
	return &Session{
		id:          id,
		logger:      o.logger.With(zap.String("session", id)),
		metrics:     o.metrics,
		sink:        o.sink,
		pitchOpts:   o.pitchOpts,
		stabilizer:  stab,
		formantEst:  fest,
		formantStab: fstab,
		formantsOn:  o.formants,
	}, nil
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id
}

// Sink returns the session sink.
func (s *Session) Sink() Sink {
	return s.sink
}

// Algorithm returns the configured pitch algorithm.
func (s *Session) Algorithm() pitch.Algorithm {
	return s.stabilizer.Config().Algorithm
}

// SetAlgorithm switches the pitch algorithm and resets all state.
func (s *Session) SetAlgorithm(a pitch.Algorithm) error {
	if !a.Valid() {
		return fmt.Errorf("track: %w: unknown algorithm %d", pitch.ErrInvalidConfig, int(a))
	}
	opts := append(append([]pitch.Option(nil), s.pitchOpts...), pitch.WithAlgorithm(a))
	stab, err := pitch.NewStabilizer(opts...)
	if err != nil {
		return err
	}
	if s.estimator != nil {
		est, err := pitch.NewEstimator(s.estimator.SampleRate(), opts...)
		if err != nil {
			return err
		}
		s.estimator = est
	}
	s.pitchOpts = opts
	s.stabilizer = stab
	s.Reset()
	s.logger.Info("pitch algorithm changed", zap.Stringer("algorithm", a))
	return nil
}

// FormantsEnabled reports whether formant tracking is on.
func (s *Session) FormantsEnabled() bool {
	return s.formantsOn
}

// SetFormantsEnabled toggles formant tracking. Any change clears formant
// state and status.
func (s *Session) SetFormantsEnabled(enabled bool) {
	if enabled == s.formantsOn {
		return
	}
	s.formantsOn = enabled
	s.formantStab.Reset()
	if s.unstable {
		s.unstable = false
		s.sink.OnStatus(StatusClear)
	}
	s.logger.Debug("formant tracking toggled", zap.Bool("enabled", enabled))
}

// Reset clears all temporal state.
func (s *Session) Reset() {
	s.stabilizer.Reset()
	s.formantStab.Reset()
	s.broken = false
	s.unstable = false
}

// bind prepares the pitch estimator for sampleRate.
func (s *Session) bind(sampleRate float64) error {
	if s.estimator != nil && s.estimator.SampleRate() == sampleRate {
		return nil
	}
	est, err := pitch.NewEstimator(sampleRate, s.pitchOpts...)
	if err != nil {
		return fmt.Errorf("track: pitch estimator: %w", err)
	}
	s.estimator = est
	return nil
}

// analyzePitch estimates and stabilizes one frame. It reports the sample
// delivered to the sink, if any.
func (s *Session) analyzePitch(ctx context.Context, mode string, t time.Duration, frame []float64, spec spectrum.Spectrum) (PitchSample, bool) {
	start := time.Now()
	raw := s.estimator.Estimate(frame, spec)
	before := s.stabilizer.State()
	out := s.stabilizer.Update(raw)
	s.metrics.recordFrame(ctx, mode, time.Since(start), out.Pitch.OK())

	if out.State != before && (out.State == pitch.Voiced || out.Released) {
		s.logger.Debug("voicing changed",
			zap.Duration("t", t),
			zap.Stringer("state", out.State),
			zap.Stringer("pitch", out.Pitch),
		)
	}

	if !out.Pitch.OK() {
		if s.broken {
			return PitchSample{}, false
		}
		s.broken = true
	} else {
		s.broken = false
	}

	sample := PitchSample{Time: t, Pitch: out.Pitch, Confidence: out.Confidence}
	s.sink.OnPitchSample(sample.Time, sample.Pitch, sample.Confidence)
	return sample, true
}

// analyzeRaw runs the strict detector on one frame and always delivers a
// sample.
func (s *Session) analyzeRaw(ctx context.Context, t time.Duration, frame []float64) PitchSample {
	start := time.Now()
	hz := s.estimator.DetectStrict(frame)
	s.metrics.recordFrame(ctx, ModeRaw.String(), time.Since(start), hz.OK())

	confidence := 0.0
	if hz.OK() {
		confidence = 1
	}
	sample := PitchSample{Time: t, Pitch: hz, Confidence: confidence}
	s.sink.OnPitchSample(sample.Time, sample.Pitch, sample.Confidence)
	return sample
}

// analyzeFormants estimates and stabilizes the formants of spec.
func (s *Session) analyzeFormants(ctx context.Context, t time.Duration, spec spectrum.Spectrum) FormantSample {
	raw := s.formantEst.Estimate(spec)
	pair, ok := s.formantStab.Update(raw, t)
	switch {
	case !ok:
		s.metrics.recordFormantRejected(ctx)
		if !s.unstable {
			s.unstable = true
			s.sink.OnStatus(StatusUnstable)
		}
	case s.unstable:
		s.unstable = false
		s.sink.OnStatus(StatusClear)
	}

	sample := FormantSample{Time: t, Formants: pair}
	s.sink.OnFormantSample(sample.Time, sample.Formants)
	return sample
}

// lastStable exposes the stabilizer reference for logging.
func (s *Session) lastStable() core.Freq {
	return s.stabilizer.LastStable()
}
