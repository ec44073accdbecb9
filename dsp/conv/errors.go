package conv

import "errors"

var (
	// ErrEmptyInput is returned when the signal has no samples.
	ErrEmptyInput = errors.New("conv: empty input")
	// ErrLengthMismatch is returned when more lags are requested than the
	// signal has samples.
	ErrLengthMismatch = errors.New("conv: buffer length mismatch")
)
