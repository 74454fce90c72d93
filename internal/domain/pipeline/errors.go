package pipeline

import "errors"

// Sentinel error kinds for this package.
var (
	ErrUnknownKeyPolicy = errors.New("unknown state key policy")
)
