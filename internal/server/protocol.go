package server

import (
	"time"

	"github.com/TomokaItou/voice-training/dsp/core"
	"github.com/TomokaItou/voice-training/dsp/pitch"
)

// Message types sent to clients.
const (
	TypeReady   = "ready"
	TypePitch   = "pitch"
	TypeFormant = "formant"
	TypeStatus  = "status"
	TypeConfig  = "config"
	TypeError   = "error"
)

// Control types accepted from clients.
const (
	ControlAlgorithm = "algorithm"
	ControlFormants  = "formants"
	ControlReset     = "reset"
)

// ReadyMessage is the first message of every connection.
type ReadyMessage struct {
	Type       string          `json:"type"`
	Session    string          `json:"session"`
	SampleRate float64         `json:"sampleRate"`
	FrameSize  int             `json:"frameSize"`
	Algorithm  pitch.Algorithm `json:"algorithm"`
	Formants   bool            `json:"formants"`
}

// PitchMessage carries one pitch sample. Hz is null for no pitch.
type PitchMessage struct {
	Type       string    `json:"type"`
	TimeMs     float64   `json:"timeMs"`
	Hz         core.Freq `json:"hz"`
	Note       string    `json:"note"`
	Confidence float64   `json:"confidence"`
}

// FormantMessage carries one formant sample.
type FormantMessage struct {
	Type   string    `json:"type"`
	TimeMs float64   `json:"timeMs"`
	F1     core.Freq `json:"f1"`
	F2     core.Freq `json:"f2"`
}

// StatusMessage mirrors the session status line. An empty message clears it.
type StatusMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ConfigMessage acknowledges a control command.
type ConfigMessage struct {
	Type      string          `json:"type"`
	Algorithm pitch.Algorithm `json:"algorithm"`
	Formants  bool            `json:"formants"`
}

// ErrorMessage reports a rejected client message. The connection stays open.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// Control is a command sent by the client as a text message.
type Control struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm,omitempty"`
	Enabled   *bool  `json:"enabled,omitempty"`
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
