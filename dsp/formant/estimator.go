package formant

import (
	"math"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
)

// Estimator picks F1 and F2 as the strongest peaks of a smoothed dB
// spectrum. It reuses an internal buffer and is not safe for concurrent use.
type Estimator struct {
	cfg      Config
	smoothed []float64
}

// NewEstimator creates an estimator with the given options.
func NewEstimator(opts ...Option) (*Estimator, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg}, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate returns the raw formant pair of spec. A dimension is absent when
// no bin in its range rises above the silence floor.
func (e *Estimator) Estimate(spec spectrum.Spectrum) Pair {
	if spec.Empty() || spec.BinHz <= 0 {
		return Pair{}
	}

	windowBins := max(1, int(math.Round(e.cfg.SmoothingHz/spec.BinHz)))
	e.smoothed = core.EnsureLen(e.smoothed, spec.Len())
	movingAverage(e.smoothed, spec.DB, windowBins)

	f1 := e.findPeak(spec.BinHz, e.cfg.F1, 0)
	floor := 0.0
	if hz, ok := f1.Get(); ok {
		floor = hz + e.cfg.MinSeparationHz
	}
	f2 := e.findPeak(spec.BinHz, e.cfg.F2, floor)
	return Pair{F1: f1, F2: f2}
}

// movingAverage writes the trailing mean over width bins of src into dst.
// The first bins average over what is available.
func movingAverage(dst, src []float64, width int) {
	sum := 0.0
	for i, v := range src {
		sum += v
		if i >= width {
			sum -= src[i-width]
		}
		dst[i] = sum / float64(min(i+1, width))
	}
}

func (e *Estimator) findPeak(binHz float64, r Range, minimumHz float64) core.Freq {
	startBin := max(0, int(math.Floor(r.MinHz/binHz)))
	endBin := min(len(e.smoothed)-1, int(math.Ceil(r.MaxHz/binHz)))

	bestBin := -1
	bestValue := e.cfg.SilenceFloorDB
	for i := startBin; i <= endBin; i++ {
		freq := float64(i) * binHz
		if !r.Contains(freq) || freq < minimumHz {
			continue
		}
		if v := e.smoothed[i]; v > bestValue {
			bestValue = v
			bestBin = i
		}
	}
	if bestBin < 0 {
		return core.None()
	}
	return core.Some(float64(bestBin) * binHz)
}
