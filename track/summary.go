package track

import (
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/pitch"
)

// Summary describes the voiced part of a contour.
type Summary struct {
	Samples     int
	Voiced      int
	VoicedRatio float64
	MeanHz      float64
	MedianHz    float64
	StdDevHz    float64
	MinHz       float64
	MaxHz       float64
	// MeanNote is the note nearest MeanHz, "--" without voiced samples.
	MeanNote string
}

// Summarize computes pitch statistics of c.
func Summarize(c Contour) Summary {
	voiced := c.Voiced()
	sum := Summary{
		Samples:  len(c.Pitch),
		Voiced:   len(voiced),
		MeanNote: pitch.NoteName(core.None()),
	}
	if len(voiced) == 0 {
		return sum
	}
	sum.VoicedRatio = float64(len(voiced)) / float64(len(c.Pitch))

	hz := make([]float64, len(voiced))
	for i, s := range voiced {
		hz[i] = s.Pitch.Hz()
	}
	slices.Sort(hz)

	sum.MeanHz = stat.Mean(hz, nil)
	if len(hz) > 1 {
		sum.StdDevHz = stat.StdDev(hz, nil)
	}
	sum.MedianHz = stat.Quantile(0.5, stat.Empirical, hz, nil)
	sum.MinHz = floats.Min(hz)
	sum.MaxHz = floats.Max(hz)
	sum.MeanNote = pitch.NoteName(core.Some(sum.MeanHz))
	return sum
}
