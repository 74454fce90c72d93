package types

import "errors"

// Sentinel kinds for wire conversion errors.
var (
	ErrUnknownJoint = errors.New("unknown joint")
	ErrInvalidColor = errors.New("invalid color image")
)
