package track

import "errors"

var (
	// ErrDecode marks input audio that could not be decoded.
	ErrDecode = errors.New("track: decode failed")
	// ErrRender marks a batch pipeline failure after decoding succeeded.
	ErrRender = errors.New("track: render failed")
	// ErrDurationNotConfirmed is the cancellation cause when a recording
	// longer than the configured cap was not confirmed.
	ErrDurationNotConfirmed = errors.New("track: duration over limit not confirmed")
	// ErrEmptyContour is returned when exporting a contour with no voiced
	// samples.
	ErrEmptyContour = errors.New("track: contour has no voiced samples")
)
