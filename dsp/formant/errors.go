package formant

import "errors"

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("formant: invalid config")
