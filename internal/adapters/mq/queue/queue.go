// Package queue carries frame pairs from sources to the single pipeline worker.
//
// The queue is a bounded FIFO: frame enqueue never blocks, and items leave in the
// order they were accepted. Device lifecycle signals travel on the same FIFO so
// they are applied between the frames around them.
package queue

import (
	"context"
	"sync"

	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/skeleton"
	"github.com/okian/posture/pkg/metrics"
)

const (
	defaultQueueCapacity = 64
	// controlReserve is buffer space beyond the frame capacity kept for control
	// signals, so a full frame queue does not hold them back.
	controlReserve = 4
)

// Frame is the payload flowing through the queue.
type Frame = skeleton.FramePair

// Control is a device lifecycle signal queued behind the frames already accepted.
type Control struct {
	Device pipeline.DeviceEvent
	// Done, when set, receives the number of subjects the signal forced Off once
	// the worker has applied it. It must have room for one value.
	Done chan<- int
}

// Item is one queue entry: a frame, or a control signal when Control is set.
type Item struct {
	Frame
	Control *Control
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame to the queue.
	// Returns false if the queue is full or closed and the frame was not enqueued.
	Enqueue(ctx context.Context, f Frame) bool

	// EnqueueControl adds a control signal behind every item already queued.
	// Returns false if the queue is closed or ctx ends before there is room.
	EnqueueControl(ctx context.Context, c *Control) bool

	// Dequeue returns a channel that receives items in enqueue order.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Item

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Cap returns the configured capacity.
	Cap() int

	// Close stops accepting frames. Frames already queued are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items      chan Item
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}

	for _, opt := range opts {
		opt(q)
	}
	if q.bufferSize < q.capacity+controlReserve {
		q.bufferSize = q.capacity + controlReserve
	}

	q.items = make(chan Item, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a frame to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) bool { //nolint:gocritic // hugeParam: Frame must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueError("closed")
		return false
	}

	if len(q.items) >= q.capacity {
		metrics.RecordQueueError("capacity_exceeded")
		return false
	}

	select {
	case q.items <- Item{Frame: f}:
		metrics.RecordQueueEnqueue()
		q.updateGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueError("context_cancelled")
		return false
	default:
		metrics.RecordQueueError("queue_full")
		return false
	}
}

// EnqueueControl adds c to the queue. Control signals are not bound by the frame
// capacity; they wait for buffer space until ctx is done.
func (q *InMemoryQueue) EnqueueControl(ctx context.Context, c *Control) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueError("closed")
		return false
	}

	select {
	case q.items <- Item{Control: c}:
		q.updateGauges()
		return true
	case <-ctx.Done():
		metrics.RecordQueueError("context_cancelled")
		return false
	}
}

// Dequeue returns a channel that will receive items as they become available.
// Only one consumer should range over it; several consumers would reorder frames.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		for it := range q.items {
			select {
			case out <- it:
				metrics.RecordQueueDequeue()
				q.updateGauges()
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	return q.updateGauges()
}

// Cap returns the configured capacity.
func (q *InMemoryQueue) Cap() int {
	return q.capacity
}

func (q *InMemoryQueue) updateGauges() int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.items)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
