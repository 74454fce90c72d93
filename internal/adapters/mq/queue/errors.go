package queue

import "errors"

// ErrQueueFull is returned by producers that surface a rejected enqueue as an error.
var ErrQueueFull = errors.New("frame queue full")
