package buffer

// Buffer is a growable sample accumulator. Producers Append blocks as they
// arrive and consumers read fixed-size frames from the front with Head,
// then Consume a hop to shift the remainder left.
type Buffer struct {
	samples []float64
}

// New returns an empty Buffer with room for capacity samples.
func New(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}
	return &Buffer{samples: make([]float64, 0, capacity)}
}

// Samples returns the buffered samples. The slice is only valid until the
// next Append or Consume.
func (b *Buffer) Samples() []float64 {
	return b.samples
}

// Len returns the current number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

// Cap returns the current capacity of the backing slice.
func (b *Buffer) Cap() int {
	return cap(b.samples)
}

// Grow ensures capacity is at least n, preserving existing data.
// If the current capacity is already >= n this is a no-op.
func (b *Buffer) Grow(n int) {
	if n <= cap(b.samples) {
		return
	}
	grown := make([]float64, len(b.samples), n)
	copy(grown, b.samples)
	b.samples = grown
}

// Append adds samples to the end, growing the backing array to exactly the
// required length when it is too small.
func (b *Buffer) Append(samples []float64) {
	b.Grow(len(b.samples) + len(samples))
	b.samples = append(b.samples, samples...)
}

// Head returns the first n samples, or nil when fewer than n are buffered.
// The returned slice aliases the buffer.
func (b *Buffer) Head(n int) []float64 {
	if n <= 0 || n > len(b.samples) {
		return nil
	}
	return b.samples[:n]
}

// Consume drops the first n samples and shifts the remainder to the front
// without reallocating. n larger than Len empties the buffer.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(b.samples) {
		b.samples = b.samples[:0]
		return
	}
	remaining := copy(b.samples, b.samples[n:])
	b.samples = b.samples[:remaining]
}

// Resize sets the length to n, reusing existing capacity when possible.
// New elements beyond the previous length are zeroed.
func (b *Buffer) Resize(n int) {
	if n < 0 {
		n = 0
	}
	oldLen := len(b.samples)
	if n <= cap(b.samples) {
		b.samples = b.samples[:n]
	} else {
		s := make([]float64, n)
		copy(s, b.samples)
		b.samples = s
	}
	for i := oldLen; i < n; i++ {
		b.samples[i] = 0
	}
}

// Reset empties the buffer and keeps its capacity.
func (b *Buffer) Reset() {
	b.samples = b.samples[:0]
}
