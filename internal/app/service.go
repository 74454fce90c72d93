// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	framequeue "github.com/okian/posture/internal/adapters/mq/queue"
	frameworker "github.com/okian/posture/internal/adapters/mq/worker"
	repository "github.com/okian/posture/internal/adapters/repository"
	"github.com/okian/posture/internal/domain/dedupe"
	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/internal/domain/types"
	"github.com/okian/posture/pkg/logger"
	"github.com/okian/posture/pkg/metrics"
)

const (
	drainTimeout    = 5 * time.Second
	minStallCheck   = 10 * time.Millisecond
	stallCheckRatio = 4
)

// Service owns the frame pipeline and implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	// Core components
	orchestrator *pipeline.Orchestrator
	store        *repository.MemoryStore
	deduper      dedupe.Deduper
	frameQueue   *framequeue.InMemoryQueue
	worker       *frameworker.InMemoryWorker

	// External sinks
	renderer  frameworker.Renderer
	indicator frameworker.Indicator
	readout   frameworker.ReadoutSink
	mapper    projection.Mapper

	// Configuration
	queueSize    int
	dedupeSize   int
	historySize  int
	maxSubjects  int
	overlaySize  int
	format       projection.ColorFormat
	axis         posture.Axis
	keyPolicy    pipeline.KeyPolicy
	resetOnLoss  bool
	stallTimeout time.Duration

	// State
	started    bool
	startedAt  time.Time
	seq        atomic.Uint64
	accepted   atomic.Uint64
	duplicates atomic.Uint64
	stalled    atomic.Bool
	stopCh    chan struct{}
	watchdog  sync.WaitGroup
	now       func() time.Time

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:    64,
		dedupeSize:   4096,
		historySize:  256,
		maxSubjects:  skeleton.DefaultMaxSubjects,
		overlaySize:  projection.DefaultOverlaySize,
		format:       projection.DefaultColorFormat,
		axis:         posture.DefaultAxis,
		keyPolicy:    pipeline.KeyBySlot,
		stallTimeout: 3 * time.Second,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting posture service...")

	s.orchestrator = pipeline.New(
		pipeline.WithClassifier(posture.NewClassifier(posture.WithAxis(s.axis))),
		pipeline.WithProjector(projection.NewProjector(s.mapper,
			projection.WithFormat(s.format),
			projection.WithOverlaySize(s.overlaySize),
		)),
		pipeline.WithMaxSubjects(s.maxSubjects),
		pipeline.WithKeyPolicy(s.keyPolicy),
		pipeline.WithResetOnSubjectLoss(s.resetOnLoss),
	)
	s.store = repository.NewMemoryStore(repository.WithHistorySize(s.historySize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.frameQueue = framequeue.NewInMemoryQueue(framequeue.WithCapacity(s.queueSize))

	indicator := s.indicator
	if indicator == nil {
		indicator = NewLogIndicator(s.logger)
	}
	s.worker = frameworker.NewInMemoryWorker(s.frameQueue, s.orchestrator,
		frameworker.WithRenderer(s.renderer),
		frameworker.WithIndicator(indicator),
		frameworker.WithReadout(s.readout),
		frameworker.WithRecorder(s.store),
	)
	go s.worker.Run(context.WithoutCancel(ctx))

	s.stopCh = make(chan struct{})
	s.startedAt = s.now()
	s.stalled.Store(false)
	s.watchdog.Add(1)
	go s.watch(ctx)

	s.started = true
	s.logger.Info(ctx, "posture service started",
		logger.Int("queueSize", s.queueSize),
		logger.Int("maxSubjects", s.maxSubjects),
		logger.String("colorFormat", s.format.String()),
		logger.String("xAxis", s.axis.String()),
		logger.String("stateKey", s.keyPolicy.String()),
		logger.Bool("resetOnSubjectLoss", s.resetOnLoss),
	)

	return nil
}

// Stop drains queued frames and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping posture service...")

	_ = s.frameQueue.Close()
	select {
	case <-s.worker.Done():
	case <-time.After(drainTimeout):
		s.logger.Warn(ctx, "frame queue did not drain in time", logger.Int("pending", s.frameQueue.Len(ctx)))
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "worker shutdown failed", logger.Error(err))
	}

	close(s.stopCh)
	s.watchdog.Wait()

	s.started = false
	s.logger.Info(ctx, "posture service stopped")
}

// Submit queues a copy of frame for processing and returns the frame number it
// was queued under. Frames without a number are numbered in arrival order. A
// frame whose SourceID was already accepted is not queued again; the error wraps
// dedupe.ErrDuplicate.
func (s *Service) Submit(ctx context.Context, frame skeleton.FramePair) (uint64, error) { //nolint:gocritic // hugeParam: the frame is cloned before queueing
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return 0, ErrNotStarted
	}

	if frame.SourceID != "" && s.deduper.SeenAndRecord(ctx, frame.SourceID) {
		s.duplicates.Add(1)
		metrics.RecordFrameDuplicate()
		s.logger.Debug(ctx, "duplicate frame ignored", logger.String("id", frame.SourceID))
		return 0, fmt.Errorf("submit frame %q: %w", frame.SourceID, dedupe.ErrDuplicate)
	}

	f := frame.Clone()
	seq := s.seq.Add(1)
	if f.Number == 0 {
		f.Number = seq
	}
	if f.CapturedAt.IsZero() {
		f.CapturedAt = s.now()
	}

	if !s.frameQueue.Enqueue(ctx, f) {
		if f.SourceID != "" {
			s.deduper.Unrecord(ctx, f.SourceID)
		}
		metrics.RecordFrameDropped()
		s.logger.Debug(ctx, "frame dropped", logger.Uint64("frame", f.Number))
		return 0, fmt.Errorf("submit frame %d: %w", f.Number, framequeue.ErrQueueFull)
	}
	s.accepted.Add(1)
	return f.Number, nil
}

// HandleDeviceEvent queues a sensor lifecycle change behind the frames already
// accepted and waits for the worker to apply it. It returns the number of
// subjects forced Off, or 0 when the service is not running or ctx ends first.
func (s *Service) HandleDeviceEvent(ctx context.Context, ev pipeline.DeviceEvent) int {
	s.mu.RLock()
	if !s.started {
		s.mu.RUnlock()
		return 0
	}
	q, w := s.frameQueue, s.worker
	s.mu.RUnlock()

	done := make(chan int, 1)
	if !q.EnqueueControl(ctx, &framequeue.Control{Device: ev, Done: done}) {
		s.logger.Warn(ctx, "device event not queued", logger.String("event", ev.String()))
		return 0
	}
	select {
	case n := <-done:
		return n
	case <-w.Done():
		return 0
	case <-ctx.Done():
		return 0
	}
}

// State returns the UI read model.
func (s *Service) State(ctx context.Context) (types.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return types.State{}, ErrNotStarted
	}
	snap, err := s.store.Latest(ctx)
	if err != nil {
		return types.State{}, err
	}

	st := types.State{
		Frame:    snap.Frame,
		Slots:    make([]types.SlotState, 0, s.maxSubjects),
		Overlays: make([]types.Overlay, 0, len(snap.Overlays)),
	}
	for _, ds := range s.orchestrator.States() {
		st.Slots = append(st.Slots, types.SlotState{Key: ds.Key, On: ds.On})
	}
	for _, r := range snap.Overlays {
		st.Overlays = append(st.Overlays, types.Overlay{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height})
	}
	if snap.Readout != nil {
		st.Readout = toReadout(snap.Readout)
	}
	return st, nil
}

// Transitions returns up to limit recent transitions, newest first.
func (s *Service) Transitions(ctx context.Context, limit int) ([]types.Transition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return nil, ErrNotStarted
	}
	evs, err := s.store.Transitions(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.Transition, len(evs))
	for i := range evs {
		out[i] = toTransition(&evs[i])
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := types.Stats{
		Started:            s.started,
		QueueSize:          s.queueSize,
		DedupeSize:         s.dedupeSize,
		MaxSubjects:        s.maxSubjects,
		ColorFormat:        s.format.String(),
		XAxis:              s.axis.String(),
		StateKey:           s.keyPolicy.String(),
		ResetOnSubjectLoss: s.resetOnLoss,
	}

	if s.started {
		for _, st := range s.orchestrator.States() {
			if st.On {
				stats.SubjectsOn++
			}
		}
		stats.QueueLength = s.frameQueue.Len(ctx)
		stats.FramesAccepted = s.accepted.Load()
		stats.FramesProcessed = s.worker.Processed()
		stats.FramesRecorded = s.store.Count(ctx)
		stats.DuplicateFrames = s.duplicates.Load()
		stats.FrameIDs = s.deduper.Size()
		stats.Stalled = s.stalled.Load()
	}

	return stats
}

// Stalled reports whether the skeleton stream is currently considered stalled.
func (s *Service) Stalled() bool {
	return s.stalled.Load()
}

func (s *Service) watch(ctx context.Context) {
	defer s.watchdog.Done()

	interval := s.stallTimeout / stallCheckRatio
	if interval < minStallCheck {
		interval = minStallCheck
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.checkStall(ctx, s.now())
		}
	}
}

// checkStall warns once when no skeleton frame arrived within the stall timeout
// and logs the recovery.
func (s *Service) checkStall(ctx context.Context, now time.Time) {
	last := s.worker.LastSkeletonFrame()
	if last.IsZero() {
		last = s.startedAt
	}
	since := now.Sub(last)
	metrics.UpdateSecondsSinceLastFrame(since.Seconds())

	switch {
	case since >= s.stallTimeout && s.stalled.CompareAndSwap(false, true):
		metrics.RecordStall()
		s.logger.Warn(ctx, "skeleton stream stalled",
			logger.Duration("since", since),
			logger.Duration("timeout", s.stallTimeout),
		)
	case since < s.stallTimeout && s.stalled.CompareAndSwap(true, false):
		s.logger.Info(ctx, "skeleton stream recovered", logger.Duration("gap", since))
	}
}

func toReadout(r *model.JointReadout) *types.Readout {
	return &types.Readout{
		Frame:      r.Frame,
		Slot:       r.Slot,
		TrackingID: r.TrackingID,
		Head:       types.Vector{X: r.Head.X, Y: r.Head.Y, Z: r.Head.Z},
		WristRight: types.Vector{X: r.WristRight.X, Y: r.WristRight.Y, Z: r.WristRight.Z},
	}
}

func toTransition(ev *model.TransitionEvent) types.Transition {
	return types.Transition{
		ID:         ev.ID,
		Frame:      ev.Frame,
		Key:        ev.Key,
		Slot:       ev.Slot,
		TrackingID: ev.TrackingID,
		Kind:       ev.Kind,
		Reason:     ev.Reason,
		At:         ev.At,
	}
}
