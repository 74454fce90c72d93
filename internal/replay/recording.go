// Package replay feeds recorded or synthetic frame sequences into the posture
// pipeline, either in-process or over the HTTP frame source.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/internal/domain/types"
)

// Recording is a replayable frame sequence.
type Recording struct {
	// Session identifies one replay run in logs; generated when empty.
	Session string `yaml:"session"`
	// Interval is the pause between frames, e.g. "33ms".
	Interval time.Duration `yaml:"interval"`
	Frames   []types.Frame `yaml:"frames"`
}

// Load decodes a YAML recording and checks that every frame converts.
func Load(r io.Reader) (*Recording, error) {
	var rec Recording
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", ErrInvalidRecording)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecording, err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.Session == "" {
		rec.Session = uuid.NewString()
	}
	return &rec, nil
}

// LoadFile reads a recording from path.
func LoadFile(path string) (*Recording, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("read recording %s: %w", path, err)
	}
	return Load(bytes.NewReader(data))
}

// Validate reports the first frame that cannot be converted.
func (r *Recording) Validate() error {
	if len(r.Frames) == 0 {
		return fmt.Errorf("%w: no frames", ErrInvalidRecording)
	}
	if r.Interval < 0 {
		return fmt.Errorf("%w: negative interval", ErrInvalidRecording)
	}
	for i := range r.Frames {
		if _, err := r.Frames[i].ToFramePair(); err != nil {
			return fmt.Errorf("%w: frame %d: %w", ErrInvalidRecording, i, err)
		}
	}
	return nil
}

// Marshal encodes the recording as YAML.
func (r *Recording) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// Generate builds a single-subject recording that alternates between PostureB
// and PostureA every period frames, starting in PostureB. A period below one is
// treated as one.
func Generate(frames, period int, interval time.Duration) *Recording {
	if period < 1 {
		period = 1
	}
	rec := &Recording{
		Session:  uuid.NewString(),
		Interval: interval,
		Frames:   make([]types.Frame, 0, frames),
	}
	for i := 0; i < frames; i++ {
		crossed := (i/period)%2 == 1
		rec.Frames = append(rec.Frames, types.Frame{
			Number:    uint64(i + 1),
			Skeletons: []types.Skeleton{syntheticSubject(1, crossed)},
		})
	}
	return rec
}

func syntheticSubject(id int, crossed bool) types.Skeleton {
	headX, wristX := 0.0, 0.2
	if crossed {
		headX, wristX = 0.2, 0.0
	}
	tracked := skeleton.JointTracked.String()
	joints := make(map[string]types.Joint, len(posture.RequiredJoints))
	for _, j := range posture.RequiredJoints {
		joints[j.String()] = types.Joint{X: 0.1, Y: 0.3, Z: 2, State: tracked}
	}
	joints[skeleton.Head.String()] = types.Joint{X: headX, Y: 0.6, Z: 2, State: tracked}
	joints[skeleton.WristRight.String()] = types.Joint{X: wristX, Y: 0.1, Z: 2, State: tracked}
	return types.Skeleton{
		TrackingID: id,
		State:      skeleton.Tracked.String(),
		Position:   types.Vector{X: 0.1, Y: 0.2, Z: 2},
		Joints:     joints,
	}
}
