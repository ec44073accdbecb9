package track

import (
	"sync"

	"github.com/TomokaItou/voice-training/dsp/spectrum"
)

// FrameSource yields the most recent analysis frame of a stream.
type FrameSource interface {
	SampleRate() float64
	// Frame copies the latest frame into dst, growing it if needed, and
	// returns it.
	Frame(dst []float64) []float64
}

// SpectrumSource yields the current dB magnitude spectrum of a stream.
type SpectrumSource interface {
	Magnitudes() spectrum.Spectrum
}

// StreamBuffer holds the latest window of a live stream. Writers push PCM
// from any goroutine; readers only ever see the newest window, so a slow
// reader skips audio instead of queueing it.
type StreamBuffer struct {
	mu sync.Mutex
	a  *spectrum.Analyzer
}

var (
	_ FrameSource    = (*StreamBuffer)(nil)
	_ SpectrumSource = (*StreamBuffer)(nil)
)

// NewStreamBuffer creates a buffer for a stream at sampleRate. The analyser
// FFT size is also the frame length.
func NewStreamBuffer(sampleRate float64, opts ...spectrum.AnalyzerOption) (*StreamBuffer, error) {
	a, err := spectrum.NewAnalyzer(sampleRate, opts...)
	if err != nil {
		return nil, err
	}
	return &StreamBuffer{a: a}, nil
}

// Write appends samples, overwriting the oldest.
func (b *StreamBuffer) Write(samples []float64) {
	b.mu.Lock()
	b.a.Write(samples)
	b.mu.Unlock()
}

// SampleRate returns the stream sample rate.
func (b *StreamBuffer) SampleRate() float64 {
	return b.a.SampleRate()
}

// FrameSize returns the frame length in samples.
func (b *StreamBuffer) FrameSize() int {
	return b.a.Config().FFTSize
}

// Buffered returns how many real samples the window holds.
func (b *StreamBuffer) Buffered() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.a.Buffered()
}

func (b *StreamBuffer) Frame(dst []float64) []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.a.Frame(dst)
}

func (b *StreamBuffer) Magnitudes() spectrum.Spectrum {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.a.Magnitudes()
}

// Reset discards all buffered audio.
func (b *StreamBuffer) Reset() {
	b.mu.Lock()
	b.a.Reset()
	b.mu.Unlock()
}
