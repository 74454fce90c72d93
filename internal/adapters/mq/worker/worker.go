// Package worker drains the frame queue into the pipeline and fans the output out to
// the renderer, indicator and readout sinks.
//
// Exactly one worker may consume a queue: the debounce history depends on frames
// arriving in acquisition order. Device signals are applied by the same loop, so a
// reset never overtakes a frame queued before it.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/okian/posture/internal/adapters/mq/queue"
	"github.com/okian/posture/internal/domain/debounce"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/pkg/logger"
	"github.com/okian/posture/pkg/metrics"
)

// Frame abstracts what the worker reads off the queue.
type Frame = queue.Frame

// Processor runs one frame through the pipeline and applies device signals.
type Processor interface {
	ProcessFrame(ctx context.Context, frame skeleton.FramePair) model.Output
	HandleDeviceEvent(ctx context.Context, ev pipeline.DeviceEvent) []model.TransitionEvent
	States() []debounce.State
}

// Renderer draws the color frame and its overlays.
type Renderer interface {
	Render(ctx context.Context, ri *model.RenderInstruction) error
}

// Indicator shows a subject's posture state change.
type Indicator interface {
	Indicate(ctx context.Context, ev model.TransitionEvent) error
}

// ReadoutSink updates the joint text fields.
type ReadoutSink interface {
	ShowReadout(ctx context.Context, r model.JointReadout) error
}

// Recorder keeps the processed output for later queries.
type Recorder interface {
	Record(ctx context.Context, out *model.Output) error
	AppendTransitions(ctx context.Context, evs []model.TransitionEvent) error
}

// Queue defines how the worker receives frames and control signals.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Worker processes frames until its queue closes.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	renderer  Renderer
	indicator Indicator
	readout   ReadoutSink
	recorder  Recorder

	processed      atomic.Uint64
	lastSkeletonAt atomic.Int64

	shutdown chan struct{}
	done     chan struct{}
	stopped  atomic.Bool

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: processor,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			if it.Control != nil {
				w.processControl(ctx, it.Control)
				continue
			}
			w.processFrame(ctx, it.Frame)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	if w.stopped.CompareAndSwap(false, true) {
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Processed returns the number of frames processed and delivered to every sink.
func (w *InMemoryWorker) Processed() uint64 {
	return w.processed.Load()
}

// LastSkeletonFrame returns when a frame carrying skeleton data was last processed,
// or the zero time if none has been.
func (w *InMemoryWorker) LastSkeletonFrame() time.Time {
	ns := w.lastSkeletonAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

func (w *InMemoryWorker) processFrame(ctx context.Context, f Frame) { //nolint:gocritic // hugeParam: Frame must be passed by value for channel semantics
	start := time.Now()
	out := w.processor.ProcessFrame(ctx, f)
	metrics.RecordFrameProcessed(float64(time.Since(start).Microseconds()) / 1000)
	defer w.processed.Add(1)

	if !out.MissingSkeleton {
		w.lastSkeletonAt.Store(time.Now().UnixNano())
	}
	w.recordMetrics(&out)

	if out.Render != nil && w.renderer != nil {
		if err := w.renderer.Render(ctx, out.Render); err != nil {
			w.sinkError(ctx, "renderer", f.Number, err)
		}
	}
	for _, ev := range out.Transitions {
		w.indicate(ctx, ev)
	}
	if out.Readout != nil && w.readout != nil {
		if err := w.readout.ShowReadout(ctx, *out.Readout); err != nil {
			w.sinkError(ctx, "readout", f.Number, err)
		}
	}
	if w.recorder != nil {
		if err := w.recorder.Record(ctx, &out); err != nil {
			w.sinkError(ctx, "recorder", f.Number, err)
		}
	}
}

// processControl applies a device signal between frames and delivers the exits it
// forces to the indicator and recorder before acknowledging it.
func (w *InMemoryWorker) processControl(ctx context.Context, c *queue.Control) {
	evs := w.processor.HandleDeviceEvent(ctx, c.Device)
	for _, ev := range evs {
		metrics.RecordTransition(ev.Kind, ev.Reason)
		w.indicate(ctx, ev)
	}
	if w.recorder != nil && len(evs) > 0 {
		if err := w.recorder.AppendTransitions(ctx, evs); err != nil {
			w.sinkError(ctx, "recorder", 0, err)
		}
	}
	metrics.UpdateSubjectsOn(w.subjectsOn())
	if c.Done != nil {
		c.Done <- len(evs)
	}
}

func (w *InMemoryWorker) indicate(ctx context.Context, ev model.TransitionEvent) {
	if w.indicator == nil {
		return
	}
	if err := w.indicator.Indicate(ctx, ev); err != nil {
		w.sinkError(ctx, "indicator", ev.Frame, err)
	}
}

func (w *InMemoryWorker) recordMetrics(out *model.Output) {
	if out.MissingColor {
		metrics.RecordFramePartial("color")
	}
	if out.MissingSkeleton {
		metrics.RecordFramePartial("skeleton")
		return
	}
	for i := range out.Classified {
		metrics.RecordSubjectClassified(out.Classified[i].Outcome.String())
	}
	metrics.RecordSubjectsSkipped(out.Skipped)
	for _, ev := range out.Transitions {
		metrics.RecordTransition(ev.Kind, ev.Reason)
	}
	metrics.UpdateTrackedSubjects(len(out.Classified) + out.Skipped)
	metrics.UpdateSubjectsOn(w.subjectsOn())
}

func (w *InMemoryWorker) subjectsOn() int {
	on := 0
	for _, s := range w.processor.States() {
		if s.On {
			on++
		}
	}
	return on
}

func (w *InMemoryWorker) sinkError(ctx context.Context, sink string, frame uint64, err error) {
	metrics.RecordSinkError(sink)
	w.logger.Error(ctx, "sink delivery failed",
		logger.String("sink", sink),
		logger.Uint64("frame", frame),
		logger.Error(err),
	)
}
