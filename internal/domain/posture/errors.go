package posture

import "errors"

// Sentinel error kinds for this package.
var (
	// ErrInsufficientTrackingData marks a subject that must be skipped this frame.
	ErrInsufficientTrackingData = errors.New("insufficient tracking data")
	ErrUnknownAxis              = errors.New("unknown axis convention")
)
