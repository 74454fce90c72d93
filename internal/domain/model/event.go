// Package model contains domain models passed between layers.
package model

import (
	"strconv"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/internal/domain/skeleton"
)

// Reasons a transition was emitted.
const (
	ReasonPosture            = "posture"
	ReasonSubjectLost        = "subject_lost"
	ReasonDeviceDisconnected = "device_disconnected"
)

// TransitionEvent is a debounced posture change for one subject key.
type TransitionEvent struct {
	ID         string    // unique id; indicators use it for idempotency
	Frame      uint64    // frame number that produced the event
	Key        int       // debounce key (slot index or tracking id)
	Slot       int       // slot index within the frame, -1 when not frame-bound
	TrackingID int       // sensor tracking id, 0 when unknown
	Kind       string    // "entered" or "exited"
	Reason     string    // why the event fired
	At         time.Time // capture time of the frame, or wall time for resets
}

// NewTransitionEvent stamps a fresh id on an event.
func NewTransitionEvent(frame uint64, key, slot, trackingID int, kind, reason string, at time.Time) TransitionEvent {
	return TransitionEvent{
		ID:         uuid.NewString(),
		Frame:      frame,
		Key:        key,
		Slot:       slot,
		TrackingID: trackingID,
		Kind:       kind,
		Reason:     reason,
		At:         at,
	}
}

// JointReadout is the raw joint snapshot shown in the UI text fields.
type JointReadout struct {
	Frame      uint64
	Slot       int
	TrackingID int
	Head       r3.Vector
	WristRight r3.Vector
}

// Lines renders the readout as "X:<v>", "Y:<v>", "Z:<v>" for head then wrist.
func (r JointReadout) Lines() [6]string {
	f := func(axis string, v float64) string {
		return axis + ":" + strconv.FormatFloat(v, 'f', -1, 64)
	}
	return [6]string{
		f("X", r.Head.X), f("Y", r.Head.Y), f("Z", r.Head.Z),
		f("X", r.WristRight.X), f("Y", r.WristRight.Y), f("Z", r.WristRight.Z),
	}
}

// Classification records one subject's definitive verdict in a frame.
type Classification struct {
	Slot       int
	TrackingID int
	Outcome    posture.Outcome
	Head       skeleton.JointSample
	WristRight skeleton.JointSample
	Projected  projection.ProjectedPoint
	Overlay    projection.Rect
}
