package pitch

import "errors"

// ErrInvalidConfig wraps every configuration validation failure.
var ErrInvalidConfig = errors.New("pitch: invalid config")
