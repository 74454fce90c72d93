package projection

import "errors"

// Sentinel error kinds for this package. Out-of-frame projections are not errors.
var (
	ErrUnknownFormat = errors.New("unknown color format")
)
