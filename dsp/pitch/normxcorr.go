package pitch

import (
	"math"

	"github.com/TomokaItou/voice-training/dsp/conv"
	"github.com/TomokaItou/voice-training/dsp/core"
)

// normXCorr scores lags in [sr/MaxHz, sr/MinHz] by autocorrelation
// normalized over the overlapping part of the frame,
//
//	r(lag) = sum x[i]x[i+lag] / sqrt(sum_{i<n-lag} x[i]^2 * sum_{i>=lag} x[i]^2)
//
// and returns the first local peak scoring at least KeyMaximumRatio of the
// global best.
func (e *Estimator) normXCorr(frame []float64) (hz, score float64, ok bool) {
	n := len(frame)
	minLag := max(1, int(math.Floor(e.sampleRate/e.cfg.MaxHz)))
	maxLag := min(n-2, int(math.Ceil(e.sampleRate/e.cfg.MinHz)))
	if maxLag <= minLag {
		return 0, 0, false
	}

	// One extra lag on each side lets the range edges qualify as peaks.
	lo, hi := minLag-1, maxLag+1
	e.acf = core.EnsureLen(e.acf, hi+1)
	if err := conv.AutoCorrelate(e.acf, frame); err != nil {
		return 0, 0, false
	}

	// energy[k] = sum of x[i]^2 for i < k
	e.energy = core.EnsureLen(e.energy, n+1)
	e.energy[0] = 0
	for i, v := range frame {
		e.energy[i+1] = e.energy[i] + v*v
	}

	e.scores = core.EnsureLen(e.scores, hi-lo+1)
	best := 0.0
	for lag := lo; lag <= hi; lag++ {
		head := e.energy[n-lag]
		tail := e.energy[n] - e.energy[lag]
		s := 0.0
		if den := math.Sqrt(head * tail); den > 0 {
			s = e.acf[lag] / den
		}
		e.scores[lag-lo] = s
		if lag >= minLag && lag <= maxLag && s > best {
			best = s
		}
	}
	if best <= 0 {
		return 0, 0, false
	}

	threshold := e.cfg.KeyMaximumRatio * best
	for lag := minLag; lag <= maxLag; lag++ {
		s := e.scores[lag-lo]
		if s < threshold {
			continue
		}
		if s > e.scores[lag-lo-1] && s >= e.scores[lag-lo+1] {
			return e.sampleRate / float64(lag), s, true
		}
	}

	// No interior peak: fall back to the global best.
	for lag := minLag; lag <= maxLag; lag++ {
		if e.scores[lag-lo] == best {
			return e.sampleRate / float64(lag), best, true
		}
	}
	return 0, 0, false
}
