package formant

import (
	"fmt"

	"github.com/TomokaItou/voice-training/dsp/core"
)

// Pair is a first and second formant estimate. Either may be absent.
type Pair struct {
	F1 core.Freq `json:"f1"`
	F2 core.Freq `json:"f2"`
}

// NewPair returns a pair with both formants present.
func NewPair(f1, f2 float64) Pair {
	return Pair{F1: core.Some(f1), F2: core.Some(f2)}
}

// Empty reports whether neither formant is present.
func (p Pair) Empty() bool {
	return !p.F1.OK() && !p.F2.OK()
}

func (p Pair) String() string {
	return fmt.Sprintf("F1=%v F2=%v", p.F1, p.F2)
}

// ValidPair reports whether p has both formants inside their ranges and at
// least MinSeparationHz apart.
func (c Config) ValidPair(p Pair) bool {
	f1, ok1 := p.F1.Get()
	f2, ok2 := p.F2.Get()
	if !ok1 || !ok2 {
		return false
	}
	if !c.F1.Contains(f1) || !c.F2.Contains(f2) {
		return false
	}
	return f2-f1 >= c.MinSeparationHz
}

// IsValidPair checks p against the default ranges.
func IsValidPair(p Pair) bool {
	return DefaultConfig().ValidPair(p)
}
