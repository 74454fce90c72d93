package replay

import "errors"

var (
	// ErrInvalidRecording is returned when a recording cannot be decoded or a frame
	// in it cannot be converted.
	ErrInvalidRecording = errors.New("invalid recording")

	// ErrRejected is returned when the frame source refuses a frame for a reason
	// other than backpressure.
	ErrRejected = errors.New("frame rejected")
)
