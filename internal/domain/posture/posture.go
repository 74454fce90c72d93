// Package posture classifies a single skeleton snapshot into a binary posture.
package posture

import (
	"fmt"

	"github.com/okian/posture/internal/domain/skeleton"
)

// Outcome is the classifier verdict for one subject.
type Outcome int

// Classifier outcomes. PostureA means the head lies further along the subject-left
// axis than the right wrist (the wrist has crossed toward the subject's right).
const (
	Undetermined Outcome = iota
	PostureA
	PostureB
)

func (o Outcome) String() string {
	switch o {
	case PostureA:
		return "posture_a"
	case PostureB:
		return "posture_b"
	default:
		return "undetermined"
	}
}

// Axis describes which way skeleton-space x grows relative to the subject.
type Axis int

const (
	// AxisSubjectLeft is the reference sensor convention: x grows toward the
	// subject's left when the subject faces the sensor.
	AxisSubjectLeft Axis = iota
	// AxisSubjectRight is used for mirrored feeds.
	AxisSubjectRight
)

// DefaultAxis is the axis convention of the reference sensor.
const DefaultAxis = AxisSubjectLeft

func (a Axis) String() string {
	if a == AxisSubjectRight {
		return "subject_right"
	}
	return "subject_left"
}

// ParseAxis parses "subject_left" or "subject_right".
func ParseAxis(s string) (Axis, error) {
	switch s {
	case "", "subject_left":
		return AxisSubjectLeft, nil
	case "subject_right":
		return AxisSubjectRight, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
}

// RequiredJoints lists the joints that must be Tracked or Inferred for a verdict.
var RequiredJoints = [...]skeleton.JointType{
	skeleton.Head,
	skeleton.WristRight,
	skeleton.ElbowRight,
	skeleton.ElbowLeft,
	skeleton.ShoulderLeft,
}

// Result is the classifier output. Head and WristRight are populated for every
// definitive result regardless of the branch taken.
type Result struct {
	Outcome    Outcome
	Head       skeleton.JointSample
	WristRight skeleton.JointSample
}

// Classifier evaluates the posture predicate.
type Classifier struct {
	axis Axis
}

// Option applies a configuration option to the Classifier.
type Option func(*Classifier)

// WithAxis sets the skeleton-space axis convention.
func WithAxis(axis Axis) Option {
	return func(c *Classifier) {
		c.axis = axis
	}
}

// NewClassifier creates a classifier using the reference axis convention unless
// overridden.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{axis: DefaultAxis}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Axis returns the configured axis convention.
func (c *Classifier) Axis() Axis {
	return c.axis
}

// Classify returns ErrInsufficientTrackingData when the subject is not fully tracked
// or a required joint is NotTracked. It has no side effects.
func (c *Classifier) Classify(s *skeleton.Skeleton) (Result, error) {
	if s == nil || s.State != skeleton.Tracked {
		return Result{}, ErrInsufficientTrackingData
	}
	for _, j := range RequiredJoints {
		if !s.Joint(j).State.Usable() {
			return Result{}, fmt.Errorf("%w: %s not tracked", ErrInsufficientTrackingData, j)
		}
	}

	head := s.Joint(skeleton.Head)
	wrist := s.Joint(skeleton.WristRight)
	res := Result{Outcome: PostureB, Head: head, WristRight: wrist}

	headX, wristX := head.Position.X, wrist.Position.X
	if c.axis == AxisSubjectRight {
		headX, wristX = -headX, -wristX
	}
	if headX > wristX {
		res.Outcome = PostureA
	}
	return res, nil
}
