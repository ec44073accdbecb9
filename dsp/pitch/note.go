package pitch

import (
	"math"
	"strconv"

	"github.com/TomokaItou/voice-training/dsp/core"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName returns the nearest equal-tempered note for f with A4 = 440 Hz,
// for example "A4" or "C#3". Absent or non-positive frequencies give "--".
func NoteName(f core.Freq) string {
	hz, ok := f.Get()
	if !ok || hz <= 0 || math.IsInf(hz, 0) || math.IsNaN(hz) {
		return "--"
	}
	midi := int(math.Round(12*math.Log2(hz/440) + 69))
	index := ((midi % 12) + 12) % 12
	octave := int(math.Floor(float64(midi)/12)) - 1
	return noteNames[index] + strconv.Itoa(octave)
}
