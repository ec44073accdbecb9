package pitch

import (
	"math"

	"github.com/TomokaItou/voice-training/dsp/core"
)

// amdf scores offsets [MinOffset, N/2) over the first N/2 samples with
// 1 - mean|x[i]-x[i+offset]|. Period multiples of a steady tone score
// almost identically, so the pitch comes from the first offset that is not
// still rising and lies within PeakTolerance of the best score. The returned
// score is always the best score. PeakTolerance 0 selects the best offset.
func (e *Estimator) amdf(frame []float64) (hz, score float64, ok bool) {
	half := len(frame) / 2
	first := e.cfg.MinOffset
	if half <= first {
		return 0, 0, false
	}

	e.scores = core.EnsureLen(e.scores, half-first)
	best := 0.0
	a := frame[:half]
	for offset := first; offset < half; offset++ {
		b := frame[offset : offset+half]
		sum := 0.0
		for i := range a {
			sum += math.Abs(a[i] - b[i])
		}
		s := 1 - sum/float64(half)
		e.scores[offset-first] = s
		if s > best {
			best = s
		}
	}
	if best <= 0 {
		return 0, 0, false
	}

	threshold := best - e.cfg.PeakTolerance
	last := len(e.scores) - 1
	for i, s := range e.scores {
		if s <= 0 || s < threshold {
			continue
		}
		if i == last || s >= e.scores[i+1] {
			return e.sampleRate / float64(i+first), best, true
		}
	}
	return 0, 0, false
}
