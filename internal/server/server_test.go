package server

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
	"github.com/TomokaItou/voice-training/internal/testutil"
	"github.com/TomokaItou/voice-training/track"
)

const testRate = 16000

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.SampleRate = testRate
	cfg.TickInterval = 5 * time.Millisecond

	base := []Option{
		WithConfig(cfg),
		WithLogger(zaptest.NewLogger(t)),
		WithAnalyzerOptions(spectrum.WithFFTSize(2048)),
		WithLiveOptions(track.WithIntervals(10*time.Millisecond, 20*time.Millisecond)),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)

	hs := httptest.NewServer(s.Handler())
	t.Cleanup(hs.Close)
	// Hijacked websocket handlers outlive hs.Close. Connections registered
	// by dial close first; wait for their handlers so nothing logs through
	// zaptest after the test ends.
	t.Cleanup(func() {
		require.Eventually(t, func() bool { return s.Active() == 0 }, 3*time.Second, 10*time.Millisecond)
	})
	return s, hs
}

func wsURL(hs *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(hs.URL, "http") + path
}

func dial(t *testing.T, hs *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(hs, path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// readUntil reads messages until one of type typ satisfies accept.
func readUntil(t *testing.T, conn *websocket.Conn, typ string, accept func([]byte) bool) []byte {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %q", typ)
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(data, &head))
		if head.Type == typ && (accept == nil || accept(data)) {
			return data
		}
	}
}

func pcm(samples []float64) []byte {
	out := make([]byte, 4*len(samples))
	for i, v := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(float32(v)))
	}
	return out
}

func sendControl(t *testing.T, conn *websocket.Conn, ctl Control) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, ctl))
}

func TestHealthz(t *testing.T) {
	_, hs := newTestServer(t)

	resp, err := http.Get(hs.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetricsRoute(t *testing.T) {
	_, hs := newTestServer(t)
	resp, err := http.Get(hs.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "voice_frames_total 1\n")
	})
	_, hs = newTestServer(t, WithMetricsHandler(handler))
	resp, err = http.Get(hs.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "voice_frames_total")
}

func TestLiveTracksTone(t *testing.T) {
	_, hs := newTestServer(t)
	conn := dial(t, hs, "/live")

	var ready ReadyMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeReady, nil), &ready))
	assert.InDelta(t, testRate, ready.SampleRate, 0)
	assert.Equal(t, 2048, ready.FrameSize)
	assert.NotEmpty(t, ready.Session)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	tone := testutil.DeterministicSine(220, testRate, 0.5, testRate/2)
	require.NoError(t, conn.Write(ctx, websocket.MessageBinary, pcm(tone)))

	data := readUntil(t, conn, TypePitch, func(b []byte) bool {
		var m PitchMessage
		return json.Unmarshal(b, &m) == nil && m.Hz.OK()
	})
	var msg PitchMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.InDelta(t, 220, msg.Hz.Hz(), 3)
	assert.Equal(t, "A3", msg.Note)
	assert.Greater(t, msg.Confidence, 0.0)
}

func TestLiveSilenceReportsNoPitch(t *testing.T) {
	_, hs := newTestServer(t)
	conn := dial(t, hs, "/live")
	readUntil(t, conn, TypeReady, nil)

	data := readUntil(t, conn, TypePitch, nil)
	assert.Contains(t, string(data), `"hz":null`)
	assert.Contains(t, string(data), `"note":"--"`)
}

func TestLiveControls(t *testing.T) {
	_, hs := newTestServer(t)
	conn := dial(t, hs, "/live")
	readUntil(t, conn, TypeReady, nil)

	sendControl(t, conn, Control{Type: ControlAlgorithm, Algorithm: "hps"})
	var cfg ConfigMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeConfig, nil), &cfg))
	assert.Equal(t, pitch.HPS, cfg.Algorithm)

	off := false
	sendControl(t, conn, Control{Type: ControlFormants, Enabled: &off})
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeConfig, nil), &cfg))
	assert.False(t, cfg.Formants)
	assert.Equal(t, pitch.HPS, cfg.Algorithm)

	sendControl(t, conn, Control{Type: ControlReset})
	readUntil(t, conn, TypeConfig, nil)
}

func TestLiveRejectsBadMessages(t *testing.T) {
	tests := map[string]struct {
		typ  websocket.MessageType
		data []byte
		want string
	}{
		"unknown control":   {websocket.MessageText, []byte(`{"type":"louder"}`), "unknown control"},
		"unknown algorithm": {websocket.MessageText, []byte(`{"type":"algorithm","algorithm":"yin"}`), "yin"},
		"formants no flag":  {websocket.MessageText, []byte(`{"type":"formants"}`), "enabled"},
		"not json":          {websocket.MessageText, []byte(`hello`), "invalid control"},
		"ragged pcm":        {websocket.MessageBinary, []byte{0, 0, 0}, "float32"},
	}
	_, hs := newTestServer(t)

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			conn := dial(t, hs, "/live")
			readUntil(t, conn, TypeReady, nil)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			require.NoError(t, conn.Write(ctx, tc.typ, tc.data))

			var msg ErrorMessage
			require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeError, nil), &msg))
			assert.Contains(t, msg.Error, tc.want)
		})
	}
}

func TestLiveRateParameter(t *testing.T) {
	s, hs := newTestServer(t)

	conn := dial(t, hs, "/live?rate=8000")
	var ready ReadyMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeReady, nil), &ready))
	assert.InDelta(t, 8000, ready.SampleRate, 0)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return s.Active() == 0 }, 3*time.Second, 10*time.Millisecond)

	for _, bad := range []string{"abc", "-1", "0"} {
		resp, err := http.Get(hs.URL + "/live?rate=" + bad)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, bad)
	}
}

func TestConnectionGauge(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	s, hs := newTestServer(t, WithMeterProvider(mp))
	conn := dial(t, hs, "/live")
	readUntil(t, conn, TypeReady, nil)

	assert.Equal(t, 1, s.Active())
	assert.Equal(t, int64(1), connections(t, reader))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return s.Active() == 0 }, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), connections(t, reader))
}

func connections(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "voice.live.connections" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestNewRejectsConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SendBuffer = 0
	_, err := New(WithConfig(cfg))
	require.Error(t, err)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, err := New(WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
