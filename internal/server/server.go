// Package server exposes live pitch and formant tracking over WebSocket.
//
// A client connects to /live, streams little-endian float32 mono PCM as
// binary messages and receives JSON messages (see protocol.go). Text messages
// from the client are control commands. /healthz and, when configured,
// /metrics are served on the same mux.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/TomokaItou/voice-training/dsp/buffer"
	"github.com/TomokaItou/voice-training/dsp/spectrum"
	"github.com/TomokaItou/voice-training/track"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Config holds the transport settings.
type Config struct {
	// SampleRate is assumed for clients that do not pass ?rate=.
	SampleRate float64
	// SendBuffer bounds the messages queued per client. Messages beyond it
	// are dropped.
	SendBuffer int
	// TickInterval is how often the live loop is driven.
	TickInterval time.Duration
	// ReadLimit caps a single client message in bytes.
	ReadLimit int64
	// OriginPatterns lists the cross-origin hosts allowed to connect.
	OriginPatterns []string
}

// DefaultConfig returns 48 kHz, 64 queued messages, a 20 ms tick and a 1 MiB
// message limit.
func DefaultConfig() Config {
	return Config{
		SampleRate:   48000,
		SendBuffer:   64,
		TickInterval: 20 * time.Millisecond,
		ReadLimit:    1 << 20,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithConfig replaces the transport settings.
func WithConfig(c Config) Option {
	return func(s *Server) { s.cfg = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMeterProvider records session and connection metrics on mp.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Server) {
		if mp != nil {
			s.mp = mp
		}
	}
}

// WithMetricsHandler serves h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithSessionOptions applies opts to every client session. Logger, sink and
// metrics are set by the server.
func WithSessionOptions(opts ...track.SessionOption) Option {
	return func(s *Server) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithLiveOptions applies opts to every client live loop.
func WithLiveOptions(opts ...track.LiveOption) Option {
	return func(s *Server) { s.liveOpts = append(s.liveOpts, opts...) }
}

// WithAnalyzerOptions configures the per-client stream analyser.
func WithAnalyzerOptions(opts ...spectrum.AnalyzerOption) Option {
	return func(s *Server) { s.analyzerOpts = append(s.analyzerOpts, opts...) }
}

// Server accepts live analysis clients.
type Server struct {
	cfg            Config
	logger         *zap.Logger
	mp             metric.MeterProvider
	metricsHandler http.Handler

	sessionOpts  []track.SessionOption
	liveOpts     []track.LiveOption
	analyzerOpts []spectrum.AnalyzerOption

	metrics     *track.Metrics
	connections metric.Int64UpDownCounter
	pool        *buffer.Pool
	active      atomic.Int64
}

// New creates a server.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    DefaultConfig(),
		logger: zap.NewNop(),
		mp:     noop.NewMeterProvider(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.cfg.SampleRate <= 0 || s.cfg.SendBuffer <= 0 || s.cfg.TickInterval <= 0 || s.cfg.ReadLimit <= 0 {
		return nil, fmt.Errorf("server: invalid config: %+v", s.cfg)
	}
	s.pool = buffer.NewPool(int(s.cfg.ReadLimit / 4))

	m, err := track.NewMetrics(s.mp)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	s.connections, err = s.mp.Meter("github.com/TomokaItou/voice-training/internal/server").Int64UpDownCounter(
		"voice.live.connections",
		metric.WithDescription("Open live analysis connections."),
	)
	if err != nil {
		return nil, fmt.Errorf("server: connections counter: %w", err)
	}
	return s, nil
}

// Active returns the number of connected clients.
func (s *Server) Active() int {
	return int(s.active.Load())
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /live", s.handleLive)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return mux
}

// ListenAndServe serves on addr until ctx is done, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.Active()})
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	rate := s.cfg.SampleRate
	if v := r.URL.Query().Get("rate"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed <= 0 {
			http.Error(w, "rate must be a positive number", http.StatusBadRequest)
			return
		}
		rate = parsed
	}

	c, err := s.newClient(rate)
	if err != nil {
		s.logger.Warn("live client rejected", zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.cfg.OriginPatterns})
	if err != nil {
		s.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(s.cfg.ReadLimit)

	ctx := r.Context()
	s.active.Add(1)
	s.connections.Add(ctx, 1)
	defer func() {
		s.connections.Add(context.WithoutCancel(ctx), -1)
		s.active.Add(-1)
	}()

	err = c.serve(ctx, conn)
	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, errClientClosed), errors.Is(err, context.Canceled):
		conn.CloseNow()
	default:
		c.logger.Warn("live client failed", zap.Error(err))
		conn.Close(websocket.StatusInternalError, "analysis failed")
	}
}
