package pitch

import (
	"math"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
)

// harmonicProduct scores every bin in the pitch range by the product of the
// linear amplitudes at 1x, 2x and 3x its frequency. The score reported is
// the peak's prominence over the mean score, mapped to [0, 1].
func (e *Estimator) harmonicProduct(spec spectrum.Spectrum) (hz, score float64, ok bool) {
	bins := spec.Len()
	if spec.Empty() {
		return 0, 0, false
	}

	startBin := max(1, int(math.Ceil(e.cfg.MinHz/spec.BinHz)))
	endBin := int(math.Floor(e.cfg.MaxHz / spec.BinHz))
	if limit := (bins - 1) / 3; endBin > limit {
		endBin = limit
	}
	if endBin < startBin {
		return 0, 0, false
	}

	e.hps = core.EnsureLen(e.hps, bins)
	for k, db := range spec.DB {
		e.hps[k] = core.DBToLinear(db)
	}

	bestBin := -1
	bestScore := 0.0
	sum := 0.0
	for k := startBin; k <= endBin; k++ {
		s := e.hps[k] * e.hps[2*k] * e.hps[3*k]
		sum += s
		if s > bestScore {
			bestScore = s
			bestBin = k
		}
	}
	if bestBin < 0 {
		return 0, 0, false
	}

	mean := sum / float64(endBin-startBin+1)
	if mean <= 0 {
		return 0, 0, false
	}
	prominence := core.Clamp((bestScore/mean-1)/4, 0, 1)
	return spec.BinFreq(bestBin), prominence, true
}
