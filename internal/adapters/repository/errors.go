package repository

import "errors"

// Sentinel kinds for read model errors.
var (
	ErrNotFound     = errors.New("no frame processed yet")
	ErrInvalidLimit = errors.New("invalid transition limit")
	ErrNilOutput    = errors.New("nil output")
)
