package dedupe

import "errors"

// ErrDuplicate reports an ID that was already recorded.
var ErrDuplicate = errors.New("duplicate frame")
