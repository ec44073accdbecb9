// Package audiofile decodes WAV and MP3 recordings to mono float samples and
// writes mono WAV files.
package audiofile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/TomokaItou/voice-training/dsp/core"
)

var (
	// ErrUnsupportedFormat is returned for anything that is neither PCM WAV
	// nor MP3.
	ErrUnsupportedFormat = errors.New("audiofile: unsupported format")
	// ErrEmpty is returned when a file decodes to no samples.
	ErrEmpty = errors.New("audiofile: no audio data")
)

// Format identifies a container.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
)

func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	default:
		return "unknown"
	}
}

// Audio is a decoded mono recording.
type Audio struct {
	Samples    []float64
	SampleRate float64
	// Channels is the channel count of the source before downmixing.
	Channels int
	Format   Format
}

// Duration returns the playback length.
func (a Audio) Duration() time.Duration {
	if a.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(a.Samples)) / a.SampleRate * float64(time.Second))
}

// DecodeFile opens and decodes path.
func DecodeFile(path string) (Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return Audio{}, fmt.Errorf("audiofile: %w", err)
	}
	defer f.Close()

	a, err := Decode(f)
	if err != nil {
		return Audio{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return a, nil
}

// Decode sniffs the container from the first bytes of r and decodes it.
// Multi-channel audio is averaged down to mono.
func Decode(r io.ReadSeeker) (Audio, error) {
	format, err := Sniff(r)
	if err != nil {
		return Audio{}, err
	}
	switch format {
	case FormatWAV:
		return decodeWAV(r)
	case FormatMP3:
		return decodeMP3(r)
	default:
		return Audio{}, ErrUnsupportedFormat
	}
}

// Sniff reports the container of r and rewinds it.
func Sniff(r io.ReadSeeker) (Format, error) {
	var head [12]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("audiofile: read header: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, fmt.Errorf("audiofile: rewind: %w", err)
	}
	h := head[:n]
	switch {
	case len(h) >= 12 && bytes.Equal(h[0:4], []byte("RIFF")) && bytes.Equal(h[8:12], []byte("WAVE")):
		return FormatWAV, nil
	case len(h) >= 3 && bytes.Equal(h[0:3], []byte("ID3")):
		return FormatMP3, nil
	case len(h) >= 2 && h[0] == 0xFF && h[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	}
	return FormatUnknown, ErrUnsupportedFormat
}

// FormatFromName guesses the container from a file extension.
func FormatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return FormatWAV
	case ".mp3":
		return FormatMP3
	default:
		return FormatUnknown
	}
}

func decodeWAV(r io.ReadSeeker) (Audio, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return Audio{}, fmt.Errorf("%w: invalid wav header", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != 1 {
		return Audio{}, fmt.Errorf("%w: wav encoding %d is not PCM", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Audio{}, fmt.Errorf("audiofile: decode wav: %w", err)
	}
	channels := buf.Format.NumChannels
	if channels < 1 {
		return Audio{}, fmt.Errorf("%w: wav without channels", ErrUnsupportedFormat)
	}

	scale, offset := pcmScale(buf.SourceBitDepth)
	samples := downmix(buf.Data, channels, func(v int) float64 {
		return (float64(v) - offset) / scale
	})
	if len(samples) == 0 {
		return Audio{}, ErrEmpty
	}
	return Audio{
		Samples:    samples,
		SampleRate: float64(buf.Format.SampleRate),
		Channels:   channels,
		Format:     FormatWAV,
	}, nil
}

// pcmScale returns the full-scale value and the zero offset of an integer
// sample depth. 8-bit WAV is unsigned.
func pcmScale(bitDepth int) (scale, offset float64) {
	if bitDepth == 8 {
		return 128, 128
	}
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	return float64(uint64(1) << (bitDepth - 1)), 0
}

func downmix(data []int, channels int, conv func(int) float64) []float64 {
	frames := len(data) / channels
	out := make([]float64, frames)
	for i := range out {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += conv(data[i*channels+c])
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// go-mp3 always produces interleaved 16-bit little-endian stereo.
const mp3FrameBytes = 4

func decodeMP3(r io.Reader) (Audio, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Audio{}, fmt.Errorf("audiofile: decode mp3: %w", err)
	}

	var samples []float64
	if n := dec.Length(); n > 0 {
		samples = make([]float64, 0, n/mp3FrameBytes)
	}
	br := bufio.NewReaderSize(dec, 64*1024)
	var frame [mp3FrameBytes]byte
	for {
		if _, err := io.ReadFull(br, frame[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return Audio{}, fmt.Errorf("audiofile: decode mp3: %w", err)
		}
		left := int16(binary.LittleEndian.Uint16(frame[0:2]))
		right := int16(binary.LittleEndian.Uint16(frame[2:4]))
		samples = append(samples, (float64(left)+float64(right))/2/32768)
	}
	if len(samples) == 0 {
		return Audio{}, ErrEmpty
	}
	return Audio{
		Samples:    samples,
		SampleRate: float64(dec.SampleRate()),
		Channels:   2,
		Format:     FormatMP3,
	}, nil
}

// WriteWAV encodes mono samples as 16-bit PCM. Values outside [-1, 1] are
// clipped.
func WriteWAV(w io.WriteSeeker, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("audiofile: invalid sample rate %d", sampleRate)
	}
	enc := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, len(samples)),
		SourceBitDepth: 16,
	}
	for i, v := range samples {
		buf.Data[i] = int(core.Clamp(v, -1, 1) * 32767)
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("audiofile: write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("audiofile: close wav: %w", err)
	}
	return nil
}

// WriteWAVFile creates path and writes samples to it.
func WriteWAVFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audiofile: %w", err)
	}
	if err := WriteWAV(f, samples, sampleRate); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
