// Package repository keeps the read model behind the UI: the latest processed frame,
// the last joint readout and a bounded history of transitions.
package repository

import (
	"context"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/projection"
)

// Snapshot is the latest frame as seen by the UI.
type Snapshot struct {
	Frame           uint64
	Overlays        []projection.Rect
	Readout         *model.JointReadout
	Classified      int
	Skipped         int
	MissingColor    bool
	MissingSkeleton bool
}

// Store provides read/write access to the output read model.
type Store interface {
	// Record replaces the latest snapshot with out and appends its transitions.
	// The readout survives frames that carry none, like the UI text fields.
	Record(ctx context.Context, out *model.Output) error

	// AppendTransitions adds transitions that were not produced by a frame.
	AppendTransitions(ctx context.Context, evs []model.TransitionEvent) error

	// Latest returns the most recent snapshot.
	// Returns ErrNotFound before the first frame.
	Latest(ctx context.Context) (Snapshot, error)

	// Transitions returns up to limit transitions, newest first.
	Transitions(ctx context.Context, limit int) ([]model.TransitionEvent, error)

	// Count returns the number of frames recorded.
	Count(ctx context.Context) int
}
