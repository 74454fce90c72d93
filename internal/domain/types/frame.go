package types

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"

	"github.com/okian/posture/internal/domain/skeleton"
)

// Joint is one joint sample on the wire.
type Joint struct {
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	State string  `json:"state" yaml:"state"`
}

// Skeleton is one subject on the wire. Joints are keyed by snake_case joint name;
// joints left out are NotTracked.
type Skeleton struct {
	TrackingID int              `json:"tracking_id" yaml:"tracking_id"`
	State      string           `json:"state" yaml:"state"`
	Position   Vector           `json:"position" yaml:"position"`
	Joints     map[string]Joint `json:"joints" yaml:"joints"`
}

// ColorImage is a 4 bytes/pixel color buffer. Fill, when set, paints every pixel
// with one BGRA value instead.
type ColorImage struct {
	Width  int     `json:"width" yaml:"width"`
	Height int     `json:"height" yaml:"height"`
	Format string  `json:"format,omitempty" yaml:"format"`
	Pixels Pixels  `json:"pixels,omitempty" yaml:"pixels,omitempty"`
	Fill   []uint8 `json:"fill,omitempty" yaml:"fill"`
}

// Pixels is a raw color buffer. JSON carries it as a base64 string. YAML takes a
// base64 string, with or without the !!binary tag, or a list of byte values.
type Pixels []byte

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Pixels) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		// Block scalars may wrap long base64 payloads.
		b, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(value.Value), ""))
		if err != nil {
			return fmt.Errorf("%w: pixels line %d: %w", ErrInvalidColor, value.Line, err)
		}
		*p = b
		return nil
	case yaml.SequenceNode:
		var vals []uint8
		if err := value.Decode(&vals); err != nil {
			return fmt.Errorf("%w: pixels line %d: %w", ErrInvalidColor, value.Line, err)
		}
		*p = vals
		return nil
	}
	return fmt.Errorf("%w: pixels line %d: want base64 or a list of bytes", ErrInvalidColor, value.Line)
}

// MarshalYAML implements yaml.Marshaler.
func (p Pixels) MarshalYAML() (any, error) {
	return base64.StdEncoding.EncodeToString(p), nil
}

// Frame is the POST /frames body and the unit of a replay recording. A null or
// absent skeletons field means the skeleton half is missing; an empty list means
// no subjects.
//
// ID is optional. When set, a frame posted again with the same ID is acknowledged
// without being processed twice.
type Frame struct {
	ID         string      `json:"id,omitempty" yaml:"id,omitempty"`
	Number     uint64      `json:"number" yaml:"number"`
	CapturedAt time.Time   `json:"captured_at,omitempty" yaml:"captured_at"`
	Color      *ColorImage `json:"color,omitempty" yaml:"color"`
	Skeletons  []Skeleton  `json:"skeletons" yaml:"skeletons"`
}

// ToFramePair converts the wire frame into the domain frame pair.
func (f *Frame) ToFramePair() (skeleton.FramePair, error) {
	out := skeleton.FramePair{Number: f.Number, SourceID: f.ID, CapturedAt: f.CapturedAt}

	if f.Color != nil {
		img, err := f.Color.toColorImage()
		if err != nil {
			return skeleton.FramePair{}, err
		}
		out.Color = img
	}

	if f.Skeletons != nil {
		out.Skeletons = make([]skeleton.Skeleton, len(f.Skeletons))
		for i := range f.Skeletons {
			s, err := f.Skeletons[i].toSkeleton()
			if err != nil {
				return skeleton.FramePair{}, fmt.Errorf("skeleton %d: %w", i, err)
			}
			out.Skeletons[i] = s
		}
	}
	return out, nil
}

func (c *ColorImage) toColorImage() (*skeleton.ColorImage, error) {
	img := &skeleton.ColorImage{Width: c.Width, Height: c.Height, Format: c.Format}
	switch {
	case len(c.Fill) == skeleton.BytesPerPixel:
		if c.Width <= 0 || c.Height <= 0 {
			return nil, fmt.Errorf("%w: %dx%d", ErrInvalidColor, c.Width, c.Height)
		}
		img.Pixels = bytes.Repeat(c.Fill, c.Width*c.Height)
	case len(c.Fill) != 0:
		return nil, fmt.Errorf("%w: fill needs %d bytes", ErrInvalidColor, skeleton.BytesPerPixel)
	default:
		img.Pixels = append([]byte(nil), c.Pixels...)
	}
	if len(img.Pixels) > 0 && !img.Valid() {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrInvalidColor, len(img.Pixels), c.Width, c.Height)
	}
	return img, nil
}

func (s *Skeleton) toSkeleton() (skeleton.Skeleton, error) {
	state, err := skeleton.ParseTrackingState(s.State)
	if err != nil {
		return skeleton.Skeleton{}, err
	}
	out := skeleton.Skeleton{
		TrackingID: s.TrackingID,
		State:      state,
		Position:   r3.Vector{X: s.Position.X, Y: s.Position.Y, Z: s.Position.Z},
	}
	for name, j := range s.Joints {
		jt, ok := skeleton.ParseJointType(name)
		if !ok {
			return skeleton.Skeleton{}, fmt.Errorf("%w: %q", ErrUnknownJoint, name)
		}
		js, err := skeleton.ParseJointTrackingState(j.State)
		if err != nil {
			return skeleton.Skeleton{}, err
		}
		out.SetJoint(jt, r3.Vector{X: j.X, Y: j.Y, Z: j.Z}, js)
	}
	return out, nil
}
