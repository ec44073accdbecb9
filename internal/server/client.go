package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/formant"
	"github.com/TomokaItou/voice-training/dsp/pitch"
	"github.com/TomokaItou/voice-training/track"
)

const writeTimeout = 5 * time.Second

var errClientClosed = errors.New("server: client closed")

// client is one live connection. The session and live loop are only touched
// from the tick goroutine; the read loop hands control commands over on a
// channel.
type client struct {
	srv     *Server
	logger  *zap.Logger
	stream  *track.StreamBuffer
	session *track.Session
	live    *track.Live

	out      chan any
	controls chan Control
	dropped  atomic.Int64
}

func (s *Server) newClient(sampleRate float64) (*client, error) {
	stream, err := track.NewStreamBuffer(sampleRate, s.analyzerOpts...)
	if err != nil {
		return nil, err
	}
	c := &client{
		srv:      s,
		stream:   stream,
		out:      make(chan any, s.cfg.SendBuffer),
		controls: make(chan Control, 8),
	}

	opts := append([]track.SessionOption(nil), s.sessionOpts...)
	opts = append(opts,
		track.WithLogger(s.logger),
		track.WithMetrics(s.metrics),
		track.WithSink(clientSink{c}),
	)
	c.session, err = track.NewSession(opts...)
	if err != nil {
		return nil, err
	}
	c.logger = s.logger.With(zap.String("session", c.session.ID()))

	c.live, err = track.NewLive(c.session, stream, stream, s.liveOpts...)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// send queues m without blocking. A full queue drops the message.
func (c *client) send(m any) {
	select {
	case c.out <- m:
	default:
		c.dropped.Add(1)
	}
}

func (c *client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.logger.Info("live client connected", zap.Float64("sample_rate", c.stream.SampleRate()))
	c.send(ReadyMessage{
		Type:       TypeReady,
		Session:    c.session.ID(),
		SampleRate: c.stream.SampleRate(),
		FrameSize:  c.stream.FrameSize(),
		Algorithm:  c.session.Algorithm(),
		Formants:   c.session.FormantsEnabled(),
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(ctx, conn) })
	g.Go(func() error { return c.tickLoop(ctx) })
	g.Go(func() error { return c.writeLoop(ctx, conn) })
	err := g.Wait()

	c.logger.Info("live client disconnected", zap.Int64("dropped", c.dropped.Load()))
	return err
}

func (c *client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return errClientClosed
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: %w", errClientClosed, err)
		}

		switch typ {
		case websocket.MessageBinary:
			if err := c.writePCM(data); err != nil {
				c.send(ErrorMessage{Type: TypeError, Error: err.Error()})
			}
		case websocket.MessageText:
			var ctl Control
			if err := json.Unmarshal(data, &ctl); err != nil {
				c.send(ErrorMessage{Type: TypeError, Error: "invalid control message"})
				continue
			}
			select {
			case c.controls <- ctl:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// writePCM decodes little-endian float32 samples into the stream.
func (c *client) writePCM(data []byte) error {
	buf, err := c.srv.pool.DecodeFloat32LE(data)
	if err != nil {
		return err
	}
	defer c.srv.pool.Put(buf)
	c.stream.Write(buf.Samples())
	return nil
}

func (c *client) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.srv.cfg.TickInterval)
	defer ticker.Stop()
	defer c.live.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ctl := <-c.controls:
			c.apply(ctl)
		case now := <-ticker.C:
			c.live.Tick(ctx, now)
		}
	}
}

func (c *client) apply(ctl Control) {
	switch ctl.Type {
	case ControlAlgorithm:
		a, err := pitch.ParseAlgorithm(ctl.Algorithm)
		if err != nil {
			c.send(ErrorMessage{Type: TypeError, Error: err.Error()})
			return
		}
		if err := c.session.SetAlgorithm(a); err != nil {
			c.send(ErrorMessage{Type: TypeError, Error: err.Error()})
			return
		}
	case ControlFormants:
		if ctl.Enabled == nil {
			c.send(ErrorMessage{Type: TypeError, Error: "formants control needs enabled"})
			return
		}
		c.session.SetFormantsEnabled(*ctl.Enabled)
	case ControlReset:
		c.live.Stop()
		c.stream.Reset()
	default:
		c.send(ErrorMessage{Type: TypeError, Error: fmt.Sprintf("unknown control %q", ctl.Type)})
		return
	}
	c.send(ConfigMessage{
		Type:      TypeConfig,
		Algorithm: c.session.Algorithm(),
		Formants:  c.session.FormantsEnabled(),
	})
}

func (c *client) writeLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, conn, m)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("server: write: %w", err)
			}
		}
	}
}

// clientSink turns session callbacks into protocol messages.
type clientSink struct {
	c *client
}

var _ track.Sink = clientSink{}

func (s clientSink) OnPitchSample(t time.Duration, p core.Freq, confidence float64) {
	s.c.send(PitchMessage{
		Type:       TypePitch,
		TimeMs:     millis(t),
		Hz:         p,
		Note:       pitch.NoteName(p),
		Confidence: confidence,
	})
}

func (s clientSink) OnFormantSample(t time.Duration, f formant.Pair) {
	s.c.send(FormantMessage{Type: TypeFormant, TimeMs: millis(t), F1: f.F1, F2: f.F2})
}

func (s clientSink) OnStatus(message string) {
	s.c.send(StatusMessage{Type: TypeStatus, Message: message})
}

func (s clientSink) OnError(err error) {
	s.c.send(ErrorMessage{Type: TypeError, Error: err.Error()})
}

func (clientSink) OnProgress(float64) {}
func (clientSink) OnDone()            {}
func (clientSink) OnCancelled()       {}
