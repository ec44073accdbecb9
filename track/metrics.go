package track

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/TomokaItou/voice-training/track"

// Metrics holds the instruments recorded by sessions.
type Metrics struct {
	// Frames counts analysed pitch frames. Attribute: mode.
	Frames metric.Int64Counter
	// FrameDuration tracks per-frame analysis time in seconds.
	FrameDuration metric.Float64Histogram
	// Voiced counts frames that produced a displayed pitch.
	Voiced metric.Int64Counter
	// FormantRejected counts raw formant pairs failing the validity gate.
	FormantRejected metric.Int64Counter
	// BatchRuns counts finished batch runs. Attribute: outcome.
	BatchRuns metric.Int64Counter
}

var frameBuckets = []float64{
	0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05,
}

// NewMetrics creates the instruments from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Frames, err = m.Int64Counter("voice.frames",
		metric.WithDescription("Analysed pitch frames by mode."),
	); err != nil {
		return nil, err
	}
	if met.FrameDuration, err = m.Float64Histogram("voice.frame.duration",
		metric.WithDescription("Time spent analysing one pitch frame."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(frameBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Voiced, err = m.Int64Counter("voice.pitch.voiced",
		metric.WithDescription("Frames that produced a displayed pitch."),
	); err != nil {
		return nil, err
	}
	if met.FormantRejected, err = m.Int64Counter("voice.formant.rejected",
		metric.WithDescription("Raw formant pairs rejected as unstable or silent."),
	); err != nil {
		return nil, err
	}
	if met.BatchRuns, err = m.Int64Counter("voice.batch.runs",
		metric.WithDescription("Finished batch runs by outcome."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NopMetrics returns instruments that record nothing.
func NopMetrics() *Metrics {
	met, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		panic("track: noop metrics: " + err.Error())
	}
	return met
}

func (m *Metrics) recordFrame(ctx context.Context, mode string, elapsed time.Duration, voiced bool) {
	attrs := metric.WithAttributes(attribute.String("mode", mode))
	m.Frames.Add(ctx, 1, attrs)
	m.FrameDuration.Record(ctx, elapsed.Seconds(), attrs)
	if voiced {
		m.Voiced.Add(ctx, 1, attrs)
	}
}

func (m *Metrics) recordFormantRejected(ctx context.Context) {
	m.FormantRejected.Add(ctx, 1)
}

func (m *Metrics) recordRun(ctx context.Context, outcome Outcome) {
	m.BatchRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
}
