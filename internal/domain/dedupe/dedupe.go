// Package dedupe tracks source frame IDs so a frame redelivered by a retrying
// transport is queued at most once.
package dedupe

import (
	"context"
	"sync"
)

// defaultMaxSize covers a little over two minutes of frames at 30 fps.
const defaultMaxSize = 4096

// Deduper records seen event IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a frame that was not accepted can be sent again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// ringDeduper remembers the most recent maxSize IDs. The oldest ID is forgotten
// first once the ring is full; maxSize <= 0 disables eviction entirely.
type ringDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> ring index, -1 in unbounded mode
	ring    []string
	next    int
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &ringDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]string, 0, d.maxSize)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize <= 0 {
		d.seen[id] = -1
		return false
	}

	if len(d.ring) < d.maxSize {
		d.seen[id] = len(d.ring)
		d.ring = append(d.ring, id)
		return false
	}
	// Full: overwrite the oldest slot. Unrecorded slots are blanked, so only
	// drop the map entry when it still points here.
	if idx, ok := d.seen[d.ring[d.next]]; ok && idx == d.next {
		delete(d.seen, d.ring[d.next])
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	return false
}

func (d *ringDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if idx >= 0 && d.ring[idx] == id {
		d.ring[idx] = ""
	}
}

func (d *ringDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
