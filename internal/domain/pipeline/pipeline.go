// Package pipeline drives one frame pair through classification, debouncing and
// projection, producing the outputs consumed by renderers and UI sinks.
//
// The orchestrator is synchronous and expects a single caller: frames must arrive
// in acquisition order or the debounce history is corrupted.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/posture/internal/domain/debounce"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/pkg/logger"
)

// KeyPolicy selects how a subject is mapped to its debounce state.
type KeyPolicy int

const (
	// KeyBySlot keys state by the subject's index in the frame. Two subjects that
	// swap slots also swap state.
	KeyBySlot KeyPolicy = iota
	// KeyByTrackingID keys state by the sensor tracking id. A subject without an
	// id falls back to -(slot+1) so it never shares state with a tracked id.
	KeyByTrackingID
)

func (p KeyPolicy) String() string {
	if p == KeyByTrackingID {
		return "tracking_id"
	}
	return "slot"
}

// ParseKeyPolicy parses "slot" or "tracking_id".
func ParseKeyPolicy(s string) (KeyPolicy, error) {
	switch s {
	case "", "slot":
		return KeyBySlot, nil
	case "tracking_id":
		return KeyByTrackingID, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKeyPolicy, s)
}

// DeviceEvent is a sensor lifecycle notification.
type DeviceEvent int

// Device lifecycle events.
const (
	DeviceConnected DeviceEvent = iota
	DeviceDisconnected
)

func (e DeviceEvent) String() string {
	if e == DeviceDisconnected {
		return "disconnected"
	}
	return "connected"
}

// Orchestrator owns the debounce state and wires the per-frame stages.
type Orchestrator struct {
	classifier  *posture.Classifier
	machine     *debounce.Machine
	projector   *projection.Projector
	maxSubjects int
	keyPolicy   KeyPolicy
	resetOnLoss bool
	now         func() time.Time
	logger      logger.Logger
}

// New creates an orchestrator with reference-sensor defaults.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		maxSubjects: skeleton.DefaultMaxSubjects,
		keyPolicy:   KeyBySlot,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.classifier == nil {
		o.classifier = posture.NewClassifier()
	}
	if o.machine == nil {
		o.machine = debounce.New(debounce.WithCapacity(o.maxSubjects))
	}
	if o.projector == nil {
		o.projector = projection.NewProjector(nil)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("pipeline")
	}
	return o
}

// ProcessFrame runs one frame pair. It never fails: subjects without tracking data
// are skipped and a missing half only yields a partial output. The returned render
// instruction references frame.Color; callers that recycle buffers must Clone first.
func (o *Orchestrator) ProcessFrame(ctx context.Context, frame skeleton.FramePair) model.Output { //nolint:gocritic // hugeParam: FramePair is passed by value
	out := model.Output{Frame: frame.Number}
	at := frame.CapturedAt
	if at.IsZero() {
		at = o.now()
	}

	if frame.HasSkeletons() {
		o.processSkeletons(ctx, &frame, at, &out)
	} else {
		out.MissingSkeleton = true
		o.logger.Debug(ctx, "frame without skeleton payload",
			logger.Any("frame", frame.Number),
			logger.Error(skeleton.ErrMissingSkeleton),
		)
	}

	if frame.HasColor() {
		overlays := make([]model.Overlay, 0, len(out.Classified))
		for i := range out.Classified {
			pt := out.Classified[i].Projected.Pixel
			overlays = append(overlays, model.Overlay{Rect: out.Classified[i].Overlay, Point: &pt})
		}
		out.Render = &model.RenderInstruction{
			Frame:      frame.Number,
			Background: frame.Color,
			Overlays:   overlays,
		}
	} else {
		out.MissingColor = true
		o.logger.Debug(ctx, "frame without color payload",
			logger.Any("frame", frame.Number),
			logger.Error(skeleton.ErrMissingColor),
		)
	}
	return out
}

func (o *Orchestrator) processSkeletons(ctx context.Context, frame *skeleton.FramePair, at time.Time, out *model.Output) {
	n := len(frame.Skeletons)
	if n > o.maxSubjects {
		n = o.maxSubjects
	}
	present := make(map[int]struct{}, n)

	for slot := 0; slot < n; slot++ {
		s := &frame.Skeletons[slot]
		key := o.key(slot, s)
		if s.State != skeleton.NotTracked {
			present[key] = struct{}{}
		}

		res, err := o.classifier.Classify(s)
		if err != nil {
			if s.State != skeleton.NotTracked && errors.Is(err, posture.ErrInsufficientTrackingData) {
				out.Skipped++
			}
			continue
		}

		tr, fired := o.machine.Observe(key, res.Outcome)
		for _, ev := range o.machine.TakeEvicted() {
			out.Transitions = append(out.Transitions,
				model.NewTransitionEvent(frame.Number, ev.Key, -1, 0, ev.Kind.String(), model.ReasonSubjectLost, at))
			o.logger.Debug(ctx, "posture state evicted", logger.Int("key", ev.Key))
		}
		if fired {
			ev := model.NewTransitionEvent(frame.Number, key, slot, s.TrackingID, tr.Kind.String(), model.ReasonPosture, at)
			out.Transitions = append(out.Transitions, ev)
			o.logger.Debug(ctx, "posture transition",
				logger.String("kind", ev.Kind),
				logger.Int("key", key),
				logger.Int("slot", slot),
			)
		}

		projected := o.projector.Project(res.Head.Position)
		out.Points = append(out.Points, projected)
		out.Classified = append(out.Classified, model.Classification{
			Slot:       slot,
			TrackingID: s.TrackingID,
			Outcome:    res.Outcome,
			Head:       res.Head,
			WristRight: res.WristRight,
			Projected:  projected,
			Overlay:    o.projector.OverlayRect(projected.Pixel),
		})
		out.Readout = &model.JointReadout{
			Frame:      frame.Number,
			Slot:       slot,
			TrackingID: s.TrackingID,
			Head:       res.Head.Position,
			WristRight: res.WristRight.Position,
		}
	}

	if o.resetOnLoss {
		for _, tr := range o.machine.Retain(present) {
			out.Transitions = append(out.Transitions,
				model.NewTransitionEvent(frame.Number, tr.Key, -1, 0, tr.Kind.String(), model.ReasonSubjectLost, at))
		}
	}
}

func (o *Orchestrator) key(slot int, s *skeleton.Skeleton) int {
	if o.keyPolicy != KeyByTrackingID {
		return slot
	}
	if s.TrackingID != 0 {
		return s.TrackingID
	}
	return -(slot + 1)
}

// HandleDeviceEvent applies the device lifecycle policy: a disconnect discards all
// posture state, returning exit events for keys that were On.
func (o *Orchestrator) HandleDeviceEvent(ctx context.Context, ev DeviceEvent) []model.TransitionEvent {
	if ev != DeviceDisconnected {
		o.logger.Info(ctx, "sensor connected")
		return nil
	}
	at := o.now()
	var out []model.TransitionEvent
	for _, tr := range o.machine.ResetAll() {
		out = append(out, model.NewTransitionEvent(0, tr.Key, -1, 0, tr.Kind.String(), model.ReasonDeviceDisconnected, at))
	}
	o.logger.Info(ctx, "sensor disconnected; posture state discarded", logger.Int("exits", len(out)))
	return out
}

// States returns the current debounce states ordered by key.
func (o *Orchestrator) States() []debounce.State {
	return o.machine.States()
}

// MaxSubjects returns the per-frame subject bound.
func (o *Orchestrator) MaxSubjects() int {
	return o.maxSubjects
}
