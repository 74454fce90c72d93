package model

import (
	"image"

	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/internal/domain/skeleton"
)

// Overlay is one render request: a rectangle plus an optional anchor point.
type Overlay struct {
	Rect  projection.Rect
	Point *image.Point
}

// RenderInstruction asks the renderer to draw Background with Overlays on top.
type RenderInstruction struct {
	Frame      uint64
	Background *skeleton.ColorImage
	Overlays   []Overlay
}

// Output is everything one processed frame produces.
type Output struct {
	Frame       uint64
	Points      []projection.ProjectedPoint
	Transitions []TransitionEvent
	// Render is nil when the frame carried no color image.
	Render *RenderInstruction
	// Readout is the last definitive subject of this frame, nil when none.
	Readout    *JointReadout
	Classified []Classification
	// Skipped counts subjects that were present but lacked tracking data.
	Skipped         int
	MissingColor    bool
	MissingSkeleton bool
}
