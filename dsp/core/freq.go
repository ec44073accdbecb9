package core

import (
	"encoding/json"
	"strconv"
)

// Freq is an optional frequency in Hz. The zero value is absent, so a
// measured 0 Hz and "no value" are never confused.
type Freq struct {
	hz float64
	ok bool
}

// Some returns a present frequency.
func Some(hz float64) Freq {
	return Freq{hz: hz, ok: true}
}

// None returns an absent frequency.
func None() Freq {
	return Freq{}
}

// Get returns the frequency and whether it is present.
func (f Freq) Get() (float64, bool) {
	return f.hz, f.ok
}

// OK reports whether a frequency is present.
func (f Freq) OK() bool {
	return f.ok
}

// Hz returns the frequency, or 0 when absent. Callers that need to
// distinguish absence must use Get or OK.
func (f Freq) Hz() float64 {
	if !f.ok {
		return 0
	}
	return f.hz
}

// InRange reports whether the frequency is present and within [lo, hi].
func (f Freq) InRange(lo, hi float64) bool {
	return f.ok && f.hz >= lo && f.hz <= hi
}

func (f Freq) String() string {
	if !f.ok {
		return "none"
	}
	return strconv.FormatFloat(f.hz, 'f', 1, 64) + " Hz"
}

// MarshalJSON encodes an absent frequency as null.
func (f Freq) MarshalJSON() ([]byte, error) {
	if !f.ok {
		return []byte("null"), nil
	}
	return json.Marshal(f.hz)
}

// UnmarshalJSON accepts a number or null.
func (f *Freq) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = None()
		return nil
	}
	var hz float64
	if err := json.Unmarshal(data, &hz); err != nil {
		return err
	}
	*f = Some(hz)
	return nil
}
