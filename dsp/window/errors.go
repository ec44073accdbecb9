package window

import "errors"

// ErrUnknownType is returned by ParseType for names outside the supported set.
var ErrUnknownType = errors.New("window: unknown type")
