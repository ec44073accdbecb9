package track

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/TomokaItou/voice-training/dsp/buffer"
	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
)

const (
	defaultFrameDuration    = 20 * time.Millisecond
	defaultHopDuration      = 10 * time.Millisecond
	defaultProgressInterval = 200 * time.Millisecond
	defaultMaxDuration      = 300 * time.Second
	defaultBatchFFTSize     = 4096
)

// Mode selects how batch frames are turned into pitch samples.
type Mode int

const (
	// ModeStabilized runs the full estimator and stabilizer.
	ModeStabilized Mode = iota
	// ModeRaw emits the strict detector result of every frame.
	ModeRaw
)

func (m Mode) String() string {
	switch m {
	case ModeStabilized:
		return "stabilized"
	case ModeRaw:
		return "raw"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses a mode name.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stabilized", "":
		return ModeStabilized, nil
	case "raw":
		return ModeRaw, nil
	default:
		return 0, fmt.Errorf("track: unknown mode %q", s)
	}
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Outcome is the terminal state of a batch run.
type Outcome int

const (
	OutcomeDone Outcome = iota
	OutcomeCancelled
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// BatchConfig controls offline analysis.
type BatchConfig struct {
	FrameDuration    time.Duration
	HopDuration      time.Duration
	FormantInterval  time.Duration
	ProgressInterval time.Duration
	// Recordings longer than MaxDuration need confirmation.
	MaxDuration time.Duration
	// FFTSize is the analyser size used for formants.
	FFTSize int
	Mode    Mode
	// KeepPartial returns the contour gathered before a cancellation.
	KeepPartial bool
}

// BatchOption mutates a BatchConfig.
type BatchOption func(*BatchConfig)

// DefaultBatchConfig returns the default offline settings.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		FrameDuration:    defaultFrameDuration,
		HopDuration:      defaultHopDuration,
		FormantInterval:  defaultFormantInterval,
		ProgressInterval: defaultProgressInterval,
		MaxDuration:      defaultMaxDuration,
		FFTSize:          defaultBatchFFTSize,
		Mode:             ModeStabilized,
	}
}

// WithBatchConfig replaces the whole configuration.
func WithBatchConfig(c BatchConfig) BatchOption {
	return func(cfg *BatchConfig) {
		*cfg = c
	}
}

// WithMode sets the batch mode.
func WithMode(m Mode) BatchOption {
	return func(cfg *BatchConfig) {
		cfg.Mode = m
	}
}

// WithKeepPartial keeps the partial contour of cancelled runs.
func WithKeepPartial() BatchOption {
	return func(cfg *BatchConfig) {
		cfg.KeepPartial = true
	}
}

// WithMaxDuration sets the confirmation threshold.
func WithMaxDuration(d time.Duration) BatchOption {
	return func(cfg *BatchConfig) {
		if d > 0 {
			cfg.MaxDuration = d
		}
	}
}

// WithFrameTiming sets frame and hop durations.
func WithFrameTiming(frame, hop time.Duration) BatchOption {
	return func(cfg *BatchConfig) {
		if frame > 0 && hop > 0 {
			cfg.FrameDuration = frame
			cfg.HopDuration = hop
		}
	}
}

func (c BatchConfig) validate() error {
	var errs []error
	if c.FrameDuration <= 0 || c.HopDuration <= 0 {
		errs = append(errs, fmt.Errorf("frame and hop must be > 0: %v, %v", c.FrameDuration, c.HopDuration))
	}
	if c.FormantInterval <= 0 || c.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("intervals must be > 0: %v, %v", c.FormantInterval, c.ProgressInterval))
	}
	if c.MaxDuration <= 0 {
		errs = append(errs, fmt.Errorf("max duration must be > 0: %v", c.MaxDuration))
	}
	if c.Mode != ModeStabilized && c.Mode != ModeRaw {
		errs = append(errs, fmt.Errorf("unknown mode %d", int(c.Mode)))
	}
	return errors.Join(errs...)
}

// BlockSource delivers a recording in order. Next returns io.EOF after the
// last block; any other error aborts the run.
type BlockSource interface {
	SampleRate() float64
	Next() ([]float64, error)
}

// SliceSource serves a decoded recording in fixed-size blocks.
type SliceSource struct {
	samples    []float64
	sampleRate float64
	blockSize  int
	pos        int
}

// NewSliceSource serves samples in blocks of blockSize (2048 when <= 0).
func NewSliceSource(samples []float64, sampleRate float64, blockSize int) *SliceSource {
	cfg := core.ApplyProcessorOptions(core.WithBlockSize(blockSize))
	return &SliceSource{samples: samples, sampleRate: sampleRate, blockSize: cfg.BlockSize}
}

func (s *SliceSource) SampleRate() float64 {
	return s.sampleRate
}

// Duration returns the length of the recording.
func (s *SliceSource) Duration() time.Duration {
	if s.sampleRate <= 0 {
		return 0
	}
	return samplesToDuration(len(s.samples), s.sampleRate)
}

func (s *SliceSource) Next() ([]float64, error) {
	if s.pos >= len(s.samples) {
		return nil, io.EOF
	}
	end := min(s.pos+s.blockSize, len(s.samples))
	block := s.samples[s.pos:end]
	s.pos = end
	return block, nil
}

// ConfirmFunc decides whether a recording over the duration cap is
// analysed.
type ConfirmFunc func(duration time.Duration) bool

// DecodeFunc decodes a recording to mono samples.
type DecodeFunc func() (samples []float64, sampleRate float64, err error)

// Result summarises a finished batch run.
type Result struct {
	Outcome  Outcome
	Contour  Contour
	Frames   int
	Duration time.Duration
	// Cause explains a cancellation.
	Cause error
}

// Batch analyses whole recordings with a session.
type Batch struct {
	session *Session
	cfg     BatchConfig
	confirm ConfirmFunc
}

// NewBatch creates a batch runner. confirm may be nil, in which case long
// recordings are refused.
func NewBatch(session *Session, confirm ConfirmFunc, opts ...BatchOption) (*Batch, error) {
	if session == nil {
		return nil, fmt.Errorf("track: batch needs a session")
	}
	cfg := DefaultBatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("track: invalid batch config: %w", err)
	}
	return &Batch{session: session, cfg: cfg, confirm: confirm}, nil
}

// Config returns the batch configuration.
func (b *Batch) Config() BatchConfig {
	return b.cfg
}

// Analyze decodes a recording and runs it.
func (b *Batch) Analyze(ctx context.Context, decode DecodeFunc) (Result, error) {
	sink := b.session.sink
	sink.OnStatus(StatusDecoding)

	samples, sampleRate, err := decode()
	if err == nil && (sampleRate <= 0 || math.IsNaN(sampleRate)) {
		err = fmt.Errorf("invalid sample rate %v", sampleRate)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrDecode, err)
		b.session.logger.Warn("decode failed", zap.Error(err))
		sink.OnStatus(StatusFailed)
		sink.OnError(err)
		b.session.metrics.recordRun(ctx, OutcomeFailed)
		return Result{Outcome: OutcomeFailed}, err
	}

	src := NewSliceSource(samples, sampleRate, 0)
	return b.Run(ctx, src, src.Duration())
}

// Run analyses every block of src in order. duration is the recording
// length used for progress and the duration cap.
//
// Cancellation through ctx or a refused confirmation yields
// OutcomeCancelled with a nil error. A source error yields OutcomeFailed
// and an error wrapping ErrRender.
func (b *Batch) Run(ctx context.Context, src BlockSource, duration time.Duration) (Result, error) {
	s := b.session
	sink := s.sink
	log := s.logger.With(zap.Duration("duration", duration), zap.Stringer("mode", b.cfg.Mode))

	if duration > b.cfg.MaxDuration && (b.confirm == nil || !b.confirm(duration)) {
		log.Info("batch refused over duration cap", zap.Duration("max", b.cfg.MaxDuration))
		return b.cancelled(ctx, Result{Cause: ErrDurationNotConfirmed}, Contour{}), nil
	}

	sampleRate := src.SampleRate()
	if err := s.bind(sampleRate); err != nil {
		return b.failed(ctx, fmt.Errorf("%w: %w", ErrRender, err))
	}
	s.Reset()

	frameLen := int(math.Round(sampleRate * b.cfg.FrameDuration.Seconds()))
	hopLen := int(math.Round(sampleRate * b.cfg.HopDuration.Seconds()))
	if frameLen <= 0 || hopLen <= 0 {
		return b.failed(ctx, fmt.Errorf("%w: frame of %d samples with hop %d at %v Hz", ErrRender, frameLen, hopLen, sampleRate))
	}

	var analyzer *spectrum.Analyzer
	if s.FormantsEnabled() {
		a, err := spectrum.NewAnalyzer(sampleRate, spectrum.WithFFTSize(b.cfg.FFTSize))
		if err != nil {
			return b.failed(ctx, fmt.Errorf("%w: %w", ErrRender, err))
		}
		analyzer = a
	}

	log.Info("batch started", zap.Float64("sample_rate", sampleRate), zap.Int("frame", frameLen), zap.Int("hop", hopLen))
	sink.OnStatus(StatusAnalyzing)

	var (
		contour      Contour
		buf          = buffer.New(2 * frameLen)
		frames       int
		frameOffset  int
		played       int
		lastProgress = time.Duration(-1)
		lastFormant  = time.Duration(-1)
	)

	for {
		if err := ctx.Err(); err != nil {
			log.Info("batch cancelled", zap.Int("frames", frames))
			return b.cancelled(ctx, Result{Frames: frames, Duration: duration, Cause: err}, contour), nil
		}

		block, err := src.Next()
		if errors.Is(err, io.EOF) && len(block) == 0 {
			break
		}
		if err != nil && !errors.Is(err, io.EOF) {
			log.Warn("batch render failed", zap.Error(err), zap.Int("frames", frames))
			return b.failed(ctx, fmt.Errorf("%w: %w", ErrRender, err))
		}

		playback := samplesToDuration(played, sampleRate)
		played += len(block)

		buf.Append(block)
		for buf.Len() >= frameLen {
			frame := buf.Head(frameLen)
			t := samplesToDuration(frameOffset, sampleRate)
			if b.cfg.Mode == ModeRaw {
				contour.Pitch = append(contour.Pitch, s.analyzeRaw(ctx, t, frame))
			} else if sample, ok := s.analyzePitch(ctx, ModeStabilized.String(), t, frame, spectrum.Spectrum{}); ok {
				contour.AppendPitch(sample)
			}
			buf.Consume(hopLen)
			frameOffset += hopLen
			frames++
		}

		if duration > 0 && (lastProgress < 0 || playback-lastProgress >= b.cfg.ProgressInterval) {
			lastProgress = playback
			sink.OnProgress(core.Clamp(100*playback.Seconds()/duration.Seconds(), 0, 100))
		}

		if analyzer != nil {
			analyzer.Write(block)
			if lastFormant < 0 || playback-lastFormant >= b.cfg.FormantInterval {
				lastFormant = playback
				contour.AppendFormant(s.analyzeFormants(ctx, playback, analyzer.Magnitudes()))
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	sink.OnProgress(100)
	sink.OnStatus(StatusDone)
	sink.OnDone()
	s.metrics.recordRun(ctx, OutcomeDone)
	log.Info("batch done",
		zap.Int("frames", frames),
		zap.Int("samples", len(contour.Pitch)),
		zap.Stringer("last_stable", s.lastStable()),
	)
	return Result{Outcome: OutcomeDone, Contour: contour, Frames: frames, Duration: duration}, nil
}

func (b *Batch) cancelled(ctx context.Context, res Result, partial Contour) Result {
	res.Outcome = OutcomeCancelled
	if b.cfg.KeepPartial {
		res.Contour = partial
	}
	sink := b.session.sink
	sink.OnStatus(StatusCancelled)
	sink.OnCancelled()
	b.session.metrics.recordRun(context.WithoutCancel(ctx), OutcomeCancelled)
	return res
}

func (b *Batch) failed(ctx context.Context, err error) (Result, error) {
	sink := b.session.sink
	sink.OnStatus(StatusFailed)
	sink.OnError(err)
	b.session.metrics.recordRun(ctx, OutcomeFailed)
	return Result{Outcome: OutcomeFailed}, err
}

func samplesToDuration(n int, sampleRate float64) time.Duration {
	return time.Duration(math.Round(float64(n) * float64(time.Second) / sampleRate))
}
