package pitch

import (
	"math"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/internal/mathx"
)

// Cents returns the interval from b to a in cents, 1200*log2(a/b).
func Cents(a, b float64) float64 {
	return 1200 * mathx.Log2(a/b)
}

// MaxJump returns the largest change from reference accepted without
// transition confirmation: the tighter of MaxJumpHz and MaxJumpCents above
// the reference. Without a reference it is MaxJumpHz.
func (c Config) MaxJump(reference core.Freq) float64 {
	ref, ok := reference.Get()
	if !ok {
		return c.MaxJumpHz
	}
	centsJump := ref * (mathx.Pow2(c.MaxJumpCents/1200) - 1)
	return math.Min(c.MaxJumpHz, centsJump)
}

// SelectCandidate corrects octave errors in raw against reference.
//
// Values within OctaveExemptCents of the reference are returned unchanged.
// Otherwise raw, raw/2 and raw*2 are compared and the one closest to the
// reference in cents is used if it is within OctaveSnapCents and inside
// the pitch range. Anything else is a real change and raw is kept.
func (c Config) SelectCandidate(raw float64, reference core.Freq) float64 {
	ref, ok := reference.Get()
	if !ok || ref <= 0 || raw <= 0 {
		return raw
	}

	if math.Abs(Cents(raw, ref)) <= c.OctaveExemptCents {
		return raw
	}

	best := raw
	bestDist := math.Abs(Cents(raw, ref))
	for _, v := range [...]float64{raw / 2, raw * 2} {
		if d := math.Abs(Cents(v, ref)); d < bestDist {
			best, bestDist = v, d
		}
	}

	if best != raw && bestDist <= c.OctaveSnapCents && best >= c.MinHz && best <= c.MaxHz {
		return best
	}
	return raw
}
