package buffer

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrPCMAlignment is returned when a float32 payload is not a whole number of
// samples.
var ErrPCMAlignment = errors.New("buffer: pcm payload is not a whole number of float32 samples")

// Pool recycles decode scratch for streamed PCM messages. Buffers that grew
// beyond the retain limit are dropped on Put so one oversized message does
// not pin memory for the life of the pool.
type Pool struct {
	pool      sync.Pool
	maxRetain int
}

// NewPool returns a Pool that keeps buffers of up to maxRetain samples.
// maxRetain <= 0 keeps every buffer.
func NewPool(maxRetain int) *Pool {
	return &Pool{
		pool: sync.Pool{
			New: func() any {
				return &Buffer{}
			},
		},
		maxRetain: maxRetain,
	}
}

// Get returns a zeroed Buffer of the requested length. Return it with Put.
func (p *Pool) Get(length int) *Buffer {
	b := p.pool.Get().(*Buffer)
	b.Resize(length)
	clear(b.samples)
	return b
}

// Put hands b back to the pool. The caller must not use b afterwards.
func (p *Pool) Put(b *Buffer) {
	if b == nil {
		return
	}
	if p.maxRetain > 0 && b.Cap() > p.maxRetain {
		return
	}
	p.pool.Put(b)
}

// DecodeFloat32LE decodes little-endian IEEE-754 float32 samples into a
// pooled Buffer. NaN and infinite samples become silence.
func (p *Pool) DecodeFloat32LE(data []byte) (*Buffer, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrPCMAlignment, len(data))
	}
	b := p.pool.Get().(*Buffer)
	b.Resize(len(data) / 4)
	for i := range b.samples {
		v := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		b.samples[i] = v
	}
	return b, nil
}
