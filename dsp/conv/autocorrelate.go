package conv

import (
	"fmt"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/TomokaItou/voice-training/internal/fftplan"
)

type complexScratch struct {
	data []complex128
}

var scratchPool = sync.Pool{
	New: func() any { return &complexScratch{} },
}

func getScratch(n int) (in, out []complex128, buf *complexScratch) {
	buf = scratchPool.Get().(*complexScratch)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]complex128, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

// AutoCorrelate writes the linear auto-correlation of x into dst:
//
//	dst[lag] = sum_{i=0}^{len(x)-1-lag} x[i] * x[i+lag]
//
// for lag in [0, len(dst)). len(dst) must not exceed len(x). The transform
// is zero-padded to at least len(x)+len(dst) so no circular wrap reaches the
// requested lags.
func AutoCorrelate(dst, x []float64) error {
	n := len(x)
	if n == 0 {
		return ErrEmptyInput
	}
	if len(dst) == 0 {
		return nil
	}
	if len(dst) > n {
		return fmt.Errorf("%w: %d lags for %d samples", ErrLengthMismatch, len(dst), n)
	}

	size := nextPowerOf2(n + len(dst))
	in, out, buf := getScratch(size)
	defer scratchPool.Put(buf)

	for i := range in {
		in[i] = 0
	}
	for i, v := range x {
		in[i] = complex(v, 0)
	}

	return fftplan.Shared().Do(size, func(plan *algofft.Plan[complex128]) error {
		if err := plan.Forward(out, in); err != nil {
			return fmt.Errorf("conv: forward FFT failed: %w", err)
		}
		for i, c := range out {
			re, im := real(c), imag(c)
			out[i] = complex(re*re+im*im, 0)
		}
		if err := plan.Inverse(in, out); err != nil {
			return fmt.Errorf("conv: inverse FFT failed: %w", err)
		}
		for lag := range dst {
			dst[lag] = real(in[lag])
		}
		return nil
	})
}

// AutoCorrelateDirect computes the same lags as [AutoCorrelate] in the time
// domain. It is faster than the FFT path for short frames or few lags.
func AutoCorrelateDirect(dst, x []float64) error {
	n := len(x)
	if n == 0 {
		return ErrEmptyInput
	}
	if len(dst) > n {
		return fmt.Errorf("%w: %d lags for %d samples", ErrLengthMismatch, len(dst), n)
	}
	for lag := range dst {
		dst[lag] = vecmath.DotProduct(x[:n-lag], x[lag:])
	}
	return nil
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
