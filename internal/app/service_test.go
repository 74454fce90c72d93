package service_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang/geo/r3"

	framequeue "github.com/okian/posture/internal/adapters/mq/queue"
	service "github.com/okian/posture/internal/app"
	"github.com/okian/posture/internal/config"
	"github.com/okian/posture/internal/domain/dedupe"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type recordingIndicator struct {
	mu  sync.Mutex
	evs []model.TransitionEvent
}

func (r *recordingIndicator) Indicate(ctx context.Context, ev model.TransitionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evs = append(r.evs, ev)
	return nil
}

func (r *recordingIndicator) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.evs))
	for _, ev := range r.evs {
		out = append(out, ev.Kind)
	}
	return out
}

func subject(id int, headX, wristX float64) skeleton.Skeleton {
	s := skeleton.Skeleton{TrackingID: id, State: skeleton.Tracked}
	for _, j := range posture.RequiredJoints {
		s.SetJoint(j, r3.Vector{Y: 0.3, Z: 2}, skeleton.JointTracked)
	}
	s.SetJoint(skeleton.Head, r3.Vector{X: headX, Y: 0.6, Z: 2}, skeleton.JointTracked)
	s.SetJoint(skeleton.WristRight, r3.Vector{X: wristX, Y: 0.1, Z: 2}, skeleton.JointTracked)
	return s
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have reference defaults", func() {
			stats := svc.GetStats()
			So(stats.MaxSubjects, ShouldEqual, 6)
			So(stats.ColorFormat, ShouldEqual, "rgb_640x480_30")
			So(stats.StateKey, ShouldEqual, "slot")
		})
	})

	Convey("Given options built from config", t, func() {
		cfg := config.New()
		cfg.StateKey = "tracking_id"
		cfg.XAxis = "subject_right"
		opts, err := service.OptionsFromConfig(cfg)
		So(err, ShouldBeNil)
		svc := service.New(opts...)

		Convey("Then the config is applied", func() {
			stats := svc.GetStats()
			So(stats.StateKey, ShouldEqual, "tracking_id")
			So(stats.XAxis, ShouldEqual, "subject_right")
		})
	})

	Convey("Given an invalid config", t, func() {
		cfg := config.New()
		cfg.ColorFormat = "depth"
		_, err := service.OptionsFromConfig(cfg)
		So(err, ShouldNotBeNil)
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		ctx := context.Background()

		Convey("When used before starting", func() {
			_, err := svc.Submit(ctx, skeleton.FramePair{})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			_, err = svc.State(ctx)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			So(svc.HandleDeviceEvent(ctx, pipeline.DeviceDisconnected), ShouldEqual, 0)
			So(svc.GetStats().Started, ShouldBeFalse)
		})

		Convey("When started, restarted and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.GetStats().Started, ShouldBeTrue)
			svc.Stop()
			svc.Stop()

			Convey("Then it should be marked as stopped", func() {
				So(svc.GetStats().Started, ShouldBeFalse)
			})

			Convey("And device events are ignored once stopped", func() {
				So(svc.HandleDeviceEvent(ctx, pipeline.DeviceDisconnected), ShouldEqual, 0)
			})
		})
	})
}

func TestService_Submit(t *testing.T) {
	Convey("Given a started service with a recording indicator", t, func() {
		ind := &recordingIndicator{}
		svc := service.New(service.WithIndicator(ind))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a subject goes from PostureB to PostureA", func() {
			first, err := svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{subject(1, 0.1, 0.3)}})
			So(err, ShouldBeNil)
			second, err := svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{subject(1, 0.3, 0.1)}})
			So(err, ShouldBeNil)

			recorded := func() bool { return svc.GetStats().FramesRecorded == 2 }

			Convey("Then unnumbered frames are numbered in arrival order", func() {
				So(first, ShouldEqual, 1)
				So(second, ShouldEqual, 2)
			})

			Convey("Then exactly one entered event reaches the indicator", func() {
				So(eventually(recorded), ShouldBeTrue)
				So(ind.kinds(), ShouldResemble, []string{"entered"})

				st, err := svc.State(ctx)
				So(err, ShouldBeNil)
				So(st.Frame, ShouldEqual, 2)
				So(st.Slots, ShouldHaveLength, 1)
				So(st.Slots[0].On, ShouldBeTrue)
				So(st.Readout, ShouldNotBeNil)
				So(st.Readout.Head.X, ShouldEqual, 0.3)
				So(st.Overlays, ShouldHaveLength, 1)
				So(st.Overlays[0].Width, ShouldEqual, 128)

				trs, err := svc.Transitions(ctx, 10)
				So(err, ShouldBeNil)
				So(trs, ShouldHaveLength, 1)
				So(trs[0].Reason, ShouldEqual, model.ReasonPosture)
			})

			Convey("And a disconnect forces the subject Off", func() {
				So(eventually(recorded), ShouldBeTrue)
				So(svc.HandleDeviceEvent(ctx, pipeline.DeviceDisconnected), ShouldEqual, 1)
				So(ind.kinds(), ShouldResemble, []string{"entered", "exited"})

				trs, _ := svc.Transitions(ctx, 1)
				So(trs[0].Reason, ShouldEqual, model.ReasonDeviceDisconnected)
			})
		})

		Convey("When the caller reuses its frame buffer after submitting", func() {
			f := skeleton.FramePair{
				Number:    1,
				Color:     &skeleton.ColorImage{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}},
				Skeletons: []skeleton.Skeleton{subject(1, 0.3, 0.1)},
			}
			n, err := svc.Submit(ctx, f)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
			f.Skeletons[0] = subject(1, 0.1, 0.3)
			f.Color.Pixels[0] = 9

			Convey("Then the queued copy is unaffected", func() {
				So(eventually(func() bool { return len(ind.kinds()) == 1 }), ShouldBeTrue)
				So(ind.kinds(), ShouldResemble, []string{"entered"})
			})
		})
	})

	Convey("Given a service with a tiny queue and a blocked indicator", t, func() {
		release := make(chan struct{})
		blocking := indicatorFunc(func(ctx context.Context, ev model.TransitionEvent) error {
			<-release
			return nil
		})
		svc := service.New(service.WithQueueSize(1), service.WithIndicator(blocking))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		defer close(release)

		Convey("When frames arrive faster than they are processed", func() {
			var dropped error
			for i := 0; i < 10 && dropped == nil; i++ {
				_, dropped = svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{subject(1, 0.3, 0.1)}})
			}

			Convey("Then submission reports backpressure", func() {
				So(errors.Is(dropped, framequeue.ErrQueueFull), ShouldBeTrue)
			})
		})
	})
}

type indicatorFunc func(ctx context.Context, ev model.TransitionEvent) error

func (f indicatorFunc) Indicate(ctx context.Context, ev model.TransitionEvent) error { return f(ctx, ev) }

type rendererFunc func(ctx context.Context, ri *model.RenderInstruction) error

func (f rendererFunc) Render(ctx context.Context, ri *model.RenderInstruction) error { return f(ctx, ri) }

func TestService_FrameIDs(t *testing.T) {
	Convey("Given a started service", t, func() {
		ind := &recordingIndicator{}
		svc := service.New(service.WithIndicator(ind))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		frame := func() skeleton.FramePair {
			return skeleton.FramePair{SourceID: "cam/1", Skeletons: []skeleton.Skeleton{subject(1, 0.3, 0.1)}}
		}

		Convey("When the same frame id is submitted twice", func() {
			n, err := svc.Submit(ctx, frame())
			So(err, ShouldBeNil)
			_, dup := svc.Submit(ctx, frame())

			Convey("Then the second submission is reported as a duplicate and not queued", func() {
				So(n, ShouldEqual, 1)
				So(errors.Is(dup, dedupe.ErrDuplicate), ShouldBeTrue)
				So(eventually(func() bool { return svc.GetStats().FramesProcessed == 1 }), ShouldBeTrue)
				stats := svc.GetStats()
				So(stats.FramesAccepted, ShouldEqual, 1)
				So(stats.DuplicateFrames, ShouldEqual, 1)
				So(stats.FrameIDs, ShouldEqual, 1)
			})
		})

		Convey("When frames carry no id", func() {
			_, errA := svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{}})
			_, errB := svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{}})

			Convey("Then both are queued", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(svc.GetStats().DuplicateFrames, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a full queue", t, func() {
		release := make(chan struct{})
		blocking := indicatorFunc(func(ctx context.Context, ev model.TransitionEvent) error {
			<-release
			return nil
		})
		svc := service.New(service.WithQueueSize(1), service.WithIndicator(blocking))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		defer close(release)

		var err error
		for i := 0; i < 10 && !errors.Is(err, framequeue.ErrQueueFull); i++ {
			_, err = svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{subject(1, 0.3, 0.1)}})
		}
		So(errors.Is(err, framequeue.ErrQueueFull), ShouldBeTrue)

		Convey("When a frame with an id is rejected for backpressure", func() {
			_, err := svc.Submit(ctx, skeleton.FramePair{SourceID: "cam/9", Skeletons: []skeleton.Skeleton{}})
			So(errors.Is(err, framequeue.ErrQueueFull), ShouldBeTrue)

			Convey("Then the id is forgotten so a resend is not taken for a duplicate", func() {
				_, err := svc.Submit(ctx, skeleton.FramePair{SourceID: "cam/9", Skeletons: []skeleton.Skeleton{}})
				So(errors.Is(err, dedupe.ErrDuplicate), ShouldBeFalse)
			})
		})
	})
}

func TestService_DeviceEventOrdering(t *testing.T) {
	Convey("Given a service whose renderer is busy with a frame", t, func() {
		ind := &recordingIndicator{}
		release := make(chan struct{})
		rendering := make(chan struct{}, 1)
		renderer := rendererFunc(func(ctx context.Context, ri *model.RenderInstruction) error {
			select {
			case rendering <- struct{}{}:
			default:
			}
			<-release
			return nil
		})
		svc := service.New(service.WithIndicator(ind), service.WithRenderer(renderer))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.Submit(ctx, skeleton.FramePair{
			Color:     &skeleton.ColorImage{Width: 1, Height: 1, Pixels: []byte{1, 2, 3, 4}},
			Skeletons: []skeleton.Skeleton{subject(1, 0.3, 0.1)},
		})
		So(err, ShouldBeNil)
		<-rendering

		Convey("When the device disconnects while that frame is in flight", func() {
			exits := make(chan int, 1)
			go func() { exits <- svc.HandleDeviceEvent(ctx, pipeline.DeviceDisconnected) }()

			var early bool
			select {
			case <-exits:
				early = true
			case <-time.After(50 * time.Millisecond):
			}
			kindsWhileBlocked := ind.kinds()
			close(release)
			n := <-exits

			Convey("Then the reset waits for the frame and its exit follows the entry", func() {
				So(early, ShouldBeFalse)
				So(kindsWhileBlocked, ShouldBeEmpty)
				So(n, ShouldEqual, 1)
				So(ind.kinds(), ShouldResemble, []string{"entered", "exited"})

				st, err := svc.State(ctx)
				So(err, ShouldBeNil)
				So(st.Slots, ShouldBeEmpty)

				trs, err := svc.Transitions(ctx, 10)
				So(err, ShouldBeNil)
				So(trs, ShouldHaveLength, 2)
				So(trs[0].Reason, ShouldEqual, model.ReasonDeviceDisconnected)
				So(trs[1].Kind, ShouldEqual, "entered")
			})
		})
	})
}

func TestService_GetStats(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New()
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		_, err := svc.Submit(ctx, skeleton.FramePair{Skeletons: []skeleton.Skeleton{}})
		So(err, ShouldBeNil)

		Convey("Then runtime stats are reported", func() {
			So(eventually(func() bool { return svc.GetStats().FramesProcessed == 1 }), ShouldBeTrue)
			stats := svc.GetStats()
			So(stats.Started, ShouldBeTrue)
			So(stats.FramesAccepted, ShouldEqual, 1)
			So(stats.FramesRecorded, ShouldEqual, 1)
			So(stats.SubjectsOn, ShouldEqual, 0)
			So(stats.Stalled, ShouldBeFalse)
		})
	})
}
