package track

import (
	"sync"
	"time"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/formant"
)

// Status messages reported through Sink.OnStatus.
const (
	StatusClear     = ""
	StatusUnstable  = "unstable/silence"
	StatusDecoding  = "decoding"
	StatusAnalyzing = "analyzing"
	StatusDone      = "done"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Sink receives everything a session produces. Calls arrive from the
// goroutine driving the session, in order.
type Sink interface {
	OnPitchSample(t time.Duration, pitch core.Freq, confidence float64)
	OnFormantSample(t time.Duration, formants formant.Pair)
	OnStatus(message string)
	// OnProgress reports batch progress in percent.
	OnProgress(percent float64)
	OnDone()
	OnCancelled()
	OnError(err error)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) OnPitchSample(time.Duration, core.Freq, float64) {}
func (NopSink) OnFormantSample(time.Duration, formant.Pair)      {}
func (NopSink) OnStatus(string)                                  {}
func (NopSink) OnProgress(float64)                               {}
func (NopSink) OnDone()                                          {}
func (NopSink) OnCancelled()                                     {}
func (NopSink) OnError(error)                                    {}

// Recorder is a Sink that keeps everything it receives. It is safe to read
// from another goroutine while a session writes to it.
type Recorder struct {
	mu       sync.Mutex
	contour  Contour
	statuses []string
	progress float64
	done     bool
	canceled bool
	err      error
}

var _ Sink = (*Recorder)(nil)

func (r *Recorder) OnPitchSample(t time.Duration, pitch core.Freq, confidence float64) {
	r.mu.Lock()
	r.contour.Pitch = append(r.contour.Pitch, PitchSample{Time: t, Pitch: pitch, Confidence: confidence})
	r.mu.Unlock()
}

func (r *Recorder) OnFormantSample(t time.Duration, formants formant.Pair) {
	r.mu.Lock()
	r.contour.AppendFormant(FormantSample{Time: t, Formants: formants})
	r.mu.Unlock()
}

func (r *Recorder) OnStatus(message string) {
	r.mu.Lock()
	r.statuses = append(r.statuses, message)
	r.mu.Unlock()
}

func (r *Recorder) OnProgress(percent float64) {
	r.mu.Lock()
	r.progress = percent
	r.mu.Unlock()
}

func (r *Recorder) OnDone() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

func (r *Recorder) OnCancelled() {
	r.mu.Lock()
	r.canceled = true
	r.mu.Unlock()
}

func (r *Recorder) OnError(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Contour returns a copy of the recorded samples.
func (r *Recorder) Contour() Contour {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.contour.Clone()
}

// Statuses returns every status message in arrival order.
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.statuses...)
}

// Progress returns the last reported progress.
func (r *Recorder) Progress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Outcome reports how the run ended, if it has.
func (r *Recorder) Outcome() (done, cancelled bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done, r.canceled, r.err
}
