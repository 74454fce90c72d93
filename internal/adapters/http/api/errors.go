package api

import (
	"errors"
	"fmt"

	"github.com/okian/posture/internal/adapters/mq/queue"
	"github.com/okian/posture/internal/adapters/repository"
	"github.com/okian/posture/internal/domain/dedupe"
)

// Sentinel kinds for API errors. Backpressure, duplicate and not-found share
// identity with the queue, dedupe and store sentinels so dependencies can return
// those unchanged.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = queue.ErrQueueFull
	ErrDuplicate    = dedupe.ErrDuplicate
	ErrNotFound     = repository.ErrNotFound
)

// NewKind tags kind with the operation that produced it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with op and kind so callers can match either.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// Wrap tags err with op.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
