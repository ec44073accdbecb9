package track

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
	"github.com/TomokaItou/voice-training/internal/testutil"
)

const liveRate = 16000

func newTestStream(t *testing.T) *StreamBuffer {
	t.Helper()
	buf, err := NewStreamBuffer(liveRate, spectrum.WithFFTSize(2048))
	require.NoError(t, err)
	return buf
}

func newTestLive(t *testing.T, s *Session, buf *StreamBuffer, opts ...LiveOption) *Live {
	t.Helper()
	l, err := NewLive(s, buf, buf, opts...)
	require.NoError(t, err)
	return l
}

func vowelBlock(n int) []float64 {
	samples := testutil.DeterministicSine(500, liveRate, 0.5, n)
	high := testutil.DeterministicSine(1500, liveRate, 0.25, n)
	for i := range samples {
		samples[i] += high[i]
	}
	return samples
}

func TestLiveOnsetAndInterval(t *testing.T) {
	s, rec := newTestSession(t)
	buf := newTestStream(t)
	buf.Write(testutil.DeterministicSine(200, liveRate, 0.5, 2048))
	l := newTestLive(t, s, buf)

	ctx := context.Background()
	t0 := time.Unix(0, 0)
	for i := range 4 {
		l.Tick(ctx, t0.Add(time.Duration(i)*100*time.Millisecond))
	}

	got := rec.Contour().Pitch
	require.Len(t, got, 2)
	assert.False(t, got[0].Pitch.OK())
	assert.Equal(t, time.Duration(0), got[0].Time)
	require.True(t, got[1].Pitch.OK())
	assert.InDelta(t, 200, got[1].Pitch.Hz(), 0.5)
	assert.Equal(t, 300*time.Millisecond, got[1].Time)

	// Ticks closer than the pitch interval do no pitch work.
	l.Tick(ctx, t0.Add(350*time.Millisecond))
	assert.Len(t, rec.Contour().Pitch, 2)
	l.Tick(ctx, t0.Add(400*time.Millisecond))
	assert.Len(t, rec.Contour().Pitch, 3)

	assert.Equal(t, rec.Contour().Pitch, l.Contour().Pitch)
}

func TestLiveFormantStatus(t *testing.T) {
	s, rec := newTestSession(t, WithFormants(true))
	buf := newTestStream(t)
	l := newTestLive(t, s, buf)

	ctx := context.Background()
	t0 := time.Unix(0, 0)
	l.Tick(ctx, t0)
	l.Tick(ctx, t0.Add(150*time.Millisecond))
	assert.Equal(t, []string{StatusUnstable}, rec.Statuses())

	buf.Write(vowelBlock(2048))
	l.Tick(ctx, t0.Add(300*time.Millisecond))
	assert.Equal(t, []string{StatusUnstable, StatusClear}, rec.Statuses())

	formants := rec.Contour().Formants
	require.Len(t, formants, 3)
	assert.True(t, formants[0].Formants.Empty())
	last := formants[2].Formants
	require.True(t, last.F1.OK() && last.F2.OK())
	assert.InDelta(t, 500, last.F1.Hz(), 100)
	assert.InDelta(t, 1500, last.F2.Hz(), 100)
}

func TestLiveFormantsDisabled(t *testing.T) {
	s, rec := newTestSession(t)
	buf := newTestStream(t)
	l := newTestLive(t, s, buf)

	l.Tick(context.Background(), time.Unix(0, 0))
	assert.Empty(t, rec.Contour().Formants)

	s.SetFormantsEnabled(true)
	l.Tick(context.Background(), time.Unix(1, 0))
	assert.Len(t, rec.Contour().Formants, 1)
}

func TestLiveHistoryWindow(t *testing.T) {
	s, _ := newTestSession(t)
	buf := newTestStream(t)
	buf.Write(testutil.DeterministicSine(220, liveRate, 0.5, 2048))
	l := newTestLive(t, s, buf, WithHistory(time.Second))

	t0 := time.Unix(0, 0)
	for i := range 30 {
		l.Tick(context.Background(), t0.Add(time.Duration(i)*100*time.Millisecond))
	}

	pitch := l.Contour().Pitch
	require.NotEmpty(t, pitch)
	last := pitch[len(pitch)-1].Time
	assert.Equal(t, 2900*time.Millisecond, last)
	assert.GreaterOrEqual(t, pitch[0].Time, last-time.Second)
	for _, sample := range pitch {
		assert.True(t, sample.Pitch.OK())
	}
}

func TestLiveRun(t *testing.T) {
	t.Run("ticks closed", func(t *testing.T) {
		s, rec := newTestSession(t)
		buf := newTestStream(t)
		buf.Write(testutil.DeterministicSine(200, liveRate, 0.5, 2048))
		l := newTestLive(t, s, buf)

		ticks := make(chan time.Time, 5)
		t0 := time.Unix(0, 0)
		for i := range 5 {
			ticks <- t0.Add(time.Duration(i) * 100 * time.Millisecond)
		}
		close(ticks)

		require.NoError(t, l.Run(context.Background(), ticks))
		assert.Len(t, rec.Contour().Voiced(), 2)
		assert.Len(t, l.Contour().Pitch, 3)
		assert.False(t, s.lastStable().OK(), "stop resets the session")
	})

	t.Run("context cancelled", func(t *testing.T) {
		s, _ := newTestSession(t)
		l := newTestLive(t, s, newTestStream(t))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, l.Run(ctx, make(chan time.Time)), context.Canceled)
	})
}

func TestNewLiveValidation(t *testing.T) {
	s, _ := newTestSession(t)
	buf := newTestStream(t)

	_, err := NewLive(nil, buf, buf)
	assert.Error(t, err)
	_, err = NewLive(s, buf, buf, WithLiveConfig(LiveConfig{}))
	assert.Error(t, err)
}

func TestStreamBufferLatestFrame(t *testing.T) {
	buf := newTestStream(t)
	assert.Equal(t, 2048, buf.FrameSize())
	assert.Equal(t, float64(liveRate), buf.SampleRate())

	buf.Write([]float64{1, 2, 3})
	assert.Equal(t, 3, buf.Buffered())
	frame := buf.Frame(nil)
	require.Len(t, frame, 2048)
	assert.Equal(t, []float64{1, 2, 3}, frame[2045:])

	buf.Reset()
	assert.Equal(t, 0, buf.Buffered())
}

type countingSpectra struct {
	SpectrumSource
	reads int
}

func (c *countingSpectra) Magnitudes() spectrum.Spectrum {
	c.reads++
	return c.SpectrumSource.Magnitudes()
}

func TestLiveReadsSpectrumOncePerTick(t *testing.T) {
	s, _ := newTestSession(t, WithFormants(true), WithPitchOptions(pitch.WithAlgorithm(pitch.HPS)))
	buf := newTestStream(t)
	buf.Write(vowelBlock(2048))
	spectra := &countingSpectra{SpectrumSource: buf}
	l, err := NewLive(s, buf, spectra)
	require.NoError(t, err)

	ctx := context.Background()
	t0 := time.Unix(0, 0)
	tests := []struct {
		at        time.Duration
		wantReads int
	}{
		{0, 1},                      // pitch and formants
		{100 * time.Millisecond, 2}, // pitch only
		{150 * time.Millisecond, 3}, // formants only
		{300 * time.Millisecond, 4}, // pitch and formants
		{320 * time.Millisecond, 4}, // neither
	}
	for _, tt := range tests {
		l.Tick(ctx, t0.Add(tt.at))
		assert.Equal(t, tt.wantReads, spectra.reads, "after tick at %v", tt.at)
	}
}
