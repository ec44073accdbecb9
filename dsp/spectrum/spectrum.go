package spectrum

import (
	"math"
	"sync"

	"github.com/cwbudde/algo-vecmath"
)

type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

func putScratch(buf *scratchBuf) {
	scratchPool.Put(buf)
}

// Spectrum is one magnitude reading: per-bin levels in dB from DC up to
// Nyquist, as produced by an analyser with transform size FFTSize.
type Spectrum struct {
	DB      []float64
	BinHz   float64
	FFTSize int
}

// Len returns the number of bins.
func (s Spectrum) Len() int {
	return len(s.DB)
}

// Empty reports whether the spectrum carries no bins.
func (s Spectrum) Empty() bool {
	return len(s.DB) == 0 || s.BinHz <= 0
}

// BinFreq returns the centre frequency of bin k in Hz.
func (s Spectrum) BinFreq(k int) float64 {
	return float64(k) * s.BinHz
}

// BinResolution returns the bin spacing for a transform of fftSize at
// sampleRate.
func BinResolution(sampleRate float64, fftSize int) float64 {
	if fftSize <= 0 {
		return 0
	}
	return sampleRate / float64(fftSize)
}

// Magnitude writes |X[k]| for the first min(len(dst), len(in)) bins.
func Magnitude(dst []float64, in []complex128) {
	n := min(len(dst), len(in))
	if n == 0 {
		return
	}
	re, im, buf := getScratch(n)
	defer putScratch(buf)
	for i, c := range in[:n] {
		re[i], im[i] = real(c), imag(c)
	}
	vecmath.Magnitude(dst[:n], re, im)
}

// PeakBin returns the index of the loudest bin in [lo, hi], or -1 when the
// range holds no bins.
func (s Spectrum) PeakBin(lo, hi int) int {
	lo = max(lo, 0)
	hi = min(hi, len(s.DB)-1)
	if lo > hi {
		return -1
	}
	best := lo
	for k := lo + 1; k <= hi; k++ {
		if s.DB[k] > s.DB[best] {
			best = k
		}
	}
	return best
}

// ToDB converts linear magnitudes to dB in place, flooring at floorDB.
func ToDB(values []float64, floorDB float64) {
	const eps = 1e-12
	for i, v := range values {
		values[i] = max(20*math.Log10(max(eps, v)), floorDB)
	}
}
