package pitch

import (
	"fmt"
	"math"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
	"github.com/cwbudde/algo-vecmath"
)

// Estimate is the raw result for one frame.
type Estimate struct {
	Pitch      core.Freq
	Confidence float64
	RMS        float64
}

// Estimator turns single frames into raw pitch estimates. It keeps scratch
// buffers between calls and is not safe for concurrent use.
type Estimator struct {
	sampleRate float64
	cfg        Config

	acf    []float64
	energy []float64
	scores []float64
	hps    []float64
}

// NewEstimator creates an estimator for frames sampled at sampleRate.
func NewEstimator(sampleRate float64, opts ...Option) (*Estimator, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("pitch: sample rate must be positive and finite: %v", sampleRate)
	}
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{sampleRate: sampleRate, cfg: cfg}, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// SampleRate returns the frame sample rate.
func (e *Estimator) SampleRate() float64 {
	return e.sampleRate
}

// RMS returns the root-mean-square amplitude of frame.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	return math.Sqrt(vecmath.DotProduct(frame, frame) / float64(len(frame)))
}

// Estimate runs the configured algorithm on frame. spec is used by HPS and
// may be empty, in which case HPS transforms the frame itself. Candidates
// outside the configured range are returned as found; callers decide
// whether they count.
func (e *Estimator) Estimate(frame []float64, spec spectrum.Spectrum) Estimate {
	rms := RMS(frame)
	if rms < e.cfg.EnergyThreshold || len(frame) == 0 {
		return Estimate{RMS: rms}
	}

	var (
		hz    float64
		score float64
		ok    bool
	)
	switch e.cfg.Algorithm {
	case NormXCorr:
		hz, score, ok = e.normXCorr(frame)
	case HPS:
		if spec.Empty() {
			var err error
			spec, err = spectrum.Transform(frame, e.sampleRate, e.cfg.HPSFFTSize, -130)
			if err != nil {
				return Estimate{RMS: rms}
			}
		}
		hz, score, ok = e.harmonicProduct(spec)
	default:
		hz, score, ok = e.amdf(frame)
	}
	if !ok {
		return Estimate{RMS: rms}
	}

	return Estimate{
		Pitch:      core.Some(hz),
		Confidence: core.Clamp(score*e.energyFactor(rms), 0, 1),
		RMS:        rms,
	}
}

// DetectStrict is the boolean AMDF variant used for raw offline framing: it
// reports a pitch only when the best AMDF score exceeds StrictScore.
func (e *Estimator) DetectStrict(frame []float64) core.Freq {
	if len(frame) == 0 || RMS(frame) < e.cfg.EnergyThreshold {
		return core.None()
	}
	hz, score, ok := e.amdf(frame)
	if !ok || score <= e.cfg.StrictScore {
		return core.None()
	}
	return core.Some(hz)
}

func (e *Estimator) energyFactor(rms float64) float64 {
	return math.Min(1, rms/e.cfg.EnergyReference)
}
