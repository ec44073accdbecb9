package track

import (
	"time"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/formant"
)

// PitchSample is one point of a pitch contour. Time is measured from the
// start of the session.
type PitchSample struct {
	Time       time.Duration
	Pitch      core.Freq
	Confidence float64
}

// FormantSample is one point of a formant contour.
type FormantSample struct {
	Time     time.Duration
	Formants formant.Pair
}

// Contour is an ordered series of pitch and formant samples.
type Contour struct {
	Pitch    []PitchSample
	Formants []FormantSample
}

// AppendPitch adds s. A sample without pitch is a contour break and is only
// appended when the contour does not already end in a break.
func (c *Contour) AppendPitch(s PitchSample) bool {
	if !s.Pitch.OK() {
		if n := len(c.Pitch); n > 0 && !c.Pitch[n-1].Pitch.OK() {
			return false
		}
	}
	c.Pitch = append(c.Pitch, s)
	return true
}

// AppendFormant adds s.
func (c *Contour) AppendFormant(s FormantSample) {
	c.Formants = append(c.Formants, s)
}

// TrimBefore drops every sample older than t.
func (c *Contour) TrimBefore(t time.Duration) {
	i := 0
	for i < len(c.Pitch) && c.Pitch[i].Time < t {
		i++
	}
	c.Pitch = append(c.Pitch[:0], c.Pitch[i:]...)

	j := 0
	for j < len(c.Formants) && c.Formants[j].Time < t {
		j++
	}
	c.Formants = append(c.Formants[:0], c.Formants[j:]...)
}

// Voiced returns the samples that carry a pitch.
func (c Contour) Voiced() []PitchSample {
	out := make([]PitchSample, 0, len(c.Pitch))
	for _, s := range c.Pitch {
		if s.Pitch.OK() {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy.
func (c Contour) Clone() Contour {
	return Contour{
		Pitch:    append([]PitchSample(nil), c.Pitch...),
		Formants: append([]FormantSample(nil), c.Formants...),
	}
}

// Reset empties the contour, keeping its storage.
func (c *Contour) Reset() {
	c.Pitch = c.Pitch[:0]
	c.Formants = c.Formants[:0]
}
