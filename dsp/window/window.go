package window

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

var typeNames = map[Type]string{
	TypeRectangular: "rectangular",
	TypeHann:        "hann",
	TypeHamming:     "hamming",
	TypeBlackman:    "blackman",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("window(%d)", int(t))
}

// ParseType maps a case-insensitive window name to its Type.
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}

// Option configures window generation.
type Option func(*config)

type config struct {
	periodic bool
}

// WithPeriodic configures periodic form (FFT framing) instead of symmetric form.
func WithPeriodic() Option {
	return func(c *config) {
		c.periodic = true
	}
}

// Generate returns length coefficients of t, nil when length <= 0.
func Generate(t Type, length int, opts ...Option) []float64 {
	if length <= 0 {
		return nil
	}
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	out := make([]float64, length)
	for i := range out {
		out[i] = evalWindow(t, samplePosition(i, length, cfg.periodic))
	}
	return out
}

func evalWindow(t Type, x float64) float64 {
	phase := 2 * math.Pi * x
	switch t {
	case TypeHann:
		return 0.5 - 0.5*math.Cos(phase)
	case TypeHamming:
		return 0.54 - 0.46*math.Cos(phase)
	case TypeBlackman:
		// alpha = 0.16, the classic Blackman used by browser analysers. The
		// endpoints round to about -1e-17 and are clamped to zero.
		return max(0, 0.42-0.5*math.Cos(phase)+0.08*math.Cos(2*phase))
	default:
		return 1
	}
}

// samplePosition maps sample n to [0, 1]. The periodic form drops the
// repeated end point so consecutive FFT frames tile without a seam.
func samplePosition(n, size int, periodic bool) float64 {
	switch {
	case size <= 1:
		return 0
	case periodic:
		return float64(n) / float64(size)
	default:
		return float64(n) / float64(size-1)
	}
}
