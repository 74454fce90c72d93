package skeleton

import "errors"

// Sentinel kinds for partial frames. Neither is fatal; they are reported so callers
// can count and log degraded ticks.
var (
	ErrMissingColor    = errors.New("frame has no color payload")
	ErrMissingSkeleton = errors.New("frame has no skeleton payload")
)

// ErrUnknownState is returned when a tracking state name cannot be parsed.
var ErrUnknownState = errors.New("unknown tracking state")
