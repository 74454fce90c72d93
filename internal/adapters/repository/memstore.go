package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/internal/domain/projection"
)

const defaultHistorySize = 256

// MemoryStore is an in-memory Store. Readers never block the frame worker: the
// latest snapshot is published through an atomic pointer.
type MemoryStore struct {
	mu      sync.RWMutex
	history []model.TransitionEvent
	next    int
	size    int
	limit   int
	readout *model.JointReadout

	latest atomic.Pointer[Snapshot]
	frames atomic.Int64
}

// NewMemoryStore constructs a store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{limit: defaultHistorySize}
	for _, opt := range opts {
		opt(s)
	}
	s.history = make([]model.TransitionEvent, s.limit)
	return s
}

// Record implements Store.Record.
func (s *MemoryStore) Record(ctx context.Context, out *model.Output) error {
	if out == nil {
		return ErrNilOutput
	}

	snap := &Snapshot{
		Frame:           out.Frame,
		Classified:      len(out.Classified),
		Skipped:         out.Skipped,
		MissingColor:    out.MissingColor,
		MissingSkeleton: out.MissingSkeleton,
	}
	if len(out.Classified) > 0 {
		snap.Overlays = make([]projection.Rect, 0, len(out.Classified))
		for i := range out.Classified {
			snap.Overlays = append(snap.Overlays, out.Classified[i].Overlay)
		}
	}

	s.mu.Lock()
	if out.Readout != nil {
		r := *out.Readout
		s.readout = &r
	}
	snap.Readout = s.readout
	s.appendLocked(out.Transitions)
	s.mu.Unlock()

	s.latest.Store(snap)
	s.frames.Add(1)
	return nil
}

// AppendTransitions implements Store.AppendTransitions.
func (s *MemoryStore) AppendTransitions(ctx context.Context, evs []model.TransitionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLocked(evs)
	return nil
}

func (s *MemoryStore) appendLocked(evs []model.TransitionEvent) {
	for _, ev := range evs {
		s.history[s.next] = ev
		s.next = (s.next + 1) % s.limit
		if s.size < s.limit {
			s.size++
		}
	}
}

// Latest implements Store.Latest.
func (s *MemoryStore) Latest(ctx context.Context) (Snapshot, error) {
	snap := s.latest.Load()
	if snap == nil {
		return Snapshot{}, ErrNotFound
	}
	return *snap, nil
}

// Transitions implements Store.Transitions.
func (s *MemoryStore) Transitions(ctx context.Context, limit int) ([]model.TransitionEvent, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > s.size {
		limit = s.size
	}
	out := make([]model.TransitionEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (s.next - i + s.limit) % s.limit
		out = append(out, s.history[idx])
	}
	return out, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(ctx context.Context) int {
	return int(s.frames.Load())
}
