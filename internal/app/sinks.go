package service

import (
	"context"

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/pkg/logger"
)

// LogIndicator is the default indicator: it reports each transition as a log line.
type LogIndicator struct {
	logger logger.Logger
}

// NewLogIndicator creates an indicator writing to l.
func NewLogIndicator(l logger.Logger) *LogIndicator {
	return &LogIndicator{logger: l.Named("indicator")}
}

// Indicate logs ev.
func (i *LogIndicator) Indicate(ctx context.Context, ev model.TransitionEvent) error {
	i.logger.Info(ctx, "posture "+ev.Kind,
		logger.String("id", ev.ID),
		logger.Int("key", ev.Key),
		logger.Int("slot", ev.Slot),
		logger.Int("trackingID", ev.TrackingID),
		logger.String("reason", ev.Reason),
		logger.Uint64("frame", ev.Frame),
	)
	return nil
}
