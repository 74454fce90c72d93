// Package skeleton contains the per-frame data delivered by a depth/color sensor:
// joint samples, per-subject skeleton snapshots and time-aligned frame pairs.
package skeleton

import (
	"fmt"

	"github.com/golang/geo/r3"
)

// DefaultMaxSubjects is the reference sensor's simultaneous subject count.
const DefaultMaxSubjects = 6

// JointType enumerates the sensor's joint vocabulary.
type JointType int

// Joint identifiers, in the order the sensor reports them.
const (
	HipCenter JointType = iota
	Spine
	ShoulderCenter
	Head
	ShoulderLeft
	ElbowLeft
	WristLeft
	HandLeft
	ShoulderRight
	ElbowRight
	WristRight
	HandRight
	HipLeft
	KneeLeft
	AnkleLeft
	FootLeft
	HipRight
	KneeRight
	AnkleRight
	FootRight

	JointCount int = iota
)

var jointNames = [JointCount]string{
	"hip_center", "spine", "shoulder_center", "head",
	"shoulder_left", "elbow_left", "wrist_left", "hand_left",
	"shoulder_right", "elbow_right", "wrist_right", "hand_right",
	"hip_left", "knee_left", "ankle_left", "foot_left",
	"hip_right", "knee_right", "ankle_right", "foot_right",
}

func (j JointType) String() string {
	if j < 0 || int(j) >= JointCount {
		return "unknown"
	}
	return jointNames[j]
}

// ParseJointType resolves a joint name as produced by String.
func ParseJointType(name string) (JointType, bool) {
	for i, n := range jointNames {
		if n == name {
			return JointType(i), true
		}
	}
	return 0, false
}

// JointTrackingState is the per-joint confidence tag.
type JointTrackingState int

// Joint confidence tags.
const (
	JointNotTracked JointTrackingState = iota
	JointInferred
	JointTracked
)

func (s JointTrackingState) String() string {
	switch s {
	case JointInferred:
		return "inferred"
	case JointTracked:
		return "tracked"
	default:
		return "not_tracked"
	}
}

// ParseJointTrackingState is the inverse of JointTrackingState.String. An empty
// name means NotTracked.
func ParseJointTrackingState(name string) (JointTrackingState, error) {
	switch name {
	case "", "not_tracked":
		return JointNotTracked, nil
	case "inferred":
		return JointInferred, nil
	case "tracked":
		return JointTracked, nil
	}
	return 0, fmt.Errorf("%w: joint state %q", ErrUnknownState, name)
}

// Usable reports whether the joint position can be trusted for classification.
func (s JointTrackingState) Usable() bool {
	return s == JointTracked || s == JointInferred
}

// TrackingState is the per-subject tracking tag.
type TrackingState int

// Subject tracking tags.
const (
	NotTracked TrackingState = iota
	PositionOnly
	Tracked
)

func (s TrackingState) String() string {
	switch s {
	case PositionOnly:
		return "position_only"
	case Tracked:
		return "tracked"
	default:
		return "not_tracked"
	}
}

// ParseTrackingState is the inverse of TrackingState.String.
func ParseTrackingState(name string) (TrackingState, error) {
	switch name {
	case "", "not_tracked":
		return NotTracked, nil
	case "position_only":
		return PositionOnly, nil
	case "tracked":
		return Tracked, nil
	}
	return 0, fmt.Errorf("%w: subject state %q", ErrUnknownState, name)
}

// JointSample is a single joint observation in skeleton space (metres).
type JointSample struct {
	Position r3.Vector
	State    JointTrackingState
}

// Skeleton is one subject at one frame.
type Skeleton struct {
	// TrackingID is the sensor-assigned identity; zero when the slot is empty.
	TrackingID int
	State      TrackingState
	// Position is the subject's centre of mass.
	Position r3.Vector
	Joints   [JointCount]JointSample
}

// Joint returns the sample for j. Unknown joint types yield a NotTracked sample.
func (s *Skeleton) Joint(j JointType) JointSample {
	if j < 0 || int(j) >= JointCount {
		return JointSample{}
	}
	return s.Joints[j]
}

// SetJoint stores a sample for j.
func (s *Skeleton) SetJoint(j JointType, pos r3.Vector, state JointTrackingState) {
	if j < 0 || int(j) >= JointCount {
		return
	}
	s.Joints[j] = JointSample{Position: pos, State: state}
}
