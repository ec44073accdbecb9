package pitch

import (
	"fmt"
	"strings"
)

// Algorithm selects how a frame is turned into a pitch estimate.
type Algorithm int

const (
	// AMDF scores offsets by average magnitude difference.
	AMDF Algorithm = iota
	// NormXCorr scores lags by normalized autocorrelation.
	NormXCorr
	// HPS multiplies spectral amplitudes at the first three harmonics.
	HPS
)

var algorithmNames = [...]string{
	AMDF:      "amdf",
	NormXCorr: "normxcorr",
	HPS:       "hps",
}

// Valid reports whether a is a known algorithm.
func (a Algorithm) Valid() bool {
	return a >= AMDF && a <= HPS
}

func (a Algorithm) String() string {
	if !a.Valid() {
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
	return algorithmNames[a]
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("pitch: unknown algorithm %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAlgorithm maps a case-insensitive name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for a, n := range algorithmNames {
		if n == name {
			return Algorithm(a), nil
		}
	}
	return AMDF, fmt.Errorf("pitch: unknown algorithm %q (want amdf, normxcorr or hps)", name)
}
