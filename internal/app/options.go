package service

import (
	"fmt"
	"time"

	frameworker "github.com/okian/posture/internal/adapters/mq/worker"
	"github.com/okian/posture/internal/config"
	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets the maximum number of frames waiting for the pipeline.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many source frame ids are remembered for redelivery
// detection.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistorySize sets how many transitions are kept for queries.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithMaxSubjects caps the skeletons processed per frame.
func WithMaxSubjects(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSubjects = n
		}
	}
}

// WithOverlaySize sets the head overlay side in pixels.
func WithOverlaySize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.overlaySize = n
		}
	}
}

// WithColorFormat sets the color stream format used for projection.
func WithColorFormat(f projection.ColorFormat) Option {
	return func(s *Service) { s.format = f }
}

// WithAxis sets the skeleton-space x convention.
func WithAxis(a posture.Axis) Option {
	return func(s *Service) { s.axis = a }
}

// WithKeyPolicy selects how subjects map to debounce state.
func WithKeyPolicy(p pipeline.KeyPolicy) Option {
	return func(s *Service) { s.keyPolicy = p }
}

// WithResetOnSubjectLoss forgets a subject's posture once it leaves the scene.
func WithResetOnSubjectLoss(on bool) Option {
	return func(s *Service) { s.resetOnLoss = on }
}

// WithStallTimeout sets how long the skeleton stream may stay quiet.
func WithStallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stallTimeout = d
		}
	}
}

// WithMapper sets the sensor calibration used for projection.
func WithMapper(m projection.Mapper) Option {
	return func(s *Service) { s.mapper = m }
}

// WithRenderer sets the render sink.
func WithRenderer(r frameworker.Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

// WithIndicator replaces the default logging indicator.
func WithIndicator(i frameworker.Indicator) Option {
	return func(s *Service) { s.indicator = i }
}

// WithReadout sets the joint readout sink.
func WithReadout(r frameworker.ReadoutSink) Option {
	return func(s *Service) { s.readout = r }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OptionsFromConfig translates a validated config into service options.
func OptionsFromConfig(cfg *config.Config) ([]Option, error) {
	format, err := projection.ParseColorFormat(cfg.ColorFormat)
	if err != nil {
		return nil, fmt.Errorf("color_format: %w", err)
	}
	axis, err := posture.ParseAxis(cfg.XAxis)
	if err != nil {
		return nil, fmt.Errorf("x_axis: %w", err)
	}
	policy, err := pipeline.ParseKeyPolicy(cfg.StateKey)
	if err != nil {
		return nil, fmt.Errorf("state_key: %w", err)
	}
	return []Option{
		WithQueueSize(cfg.FrameQueueSize),
		WithDedupeSize(cfg.DedupeSize),
		WithHistorySize(cfg.TransitionHistory),
		WithMaxSubjects(cfg.MaxSubjects),
		WithOverlaySize(cfg.OverlaySize),
		WithColorFormat(format),
		WithAxis(axis),
		WithKeyPolicy(policy),
		WithResetOnSubjectLoss(cfg.ResetOnSubjectLoss),
		WithStallTimeout(time.Duration(cfg.StallTimeoutMS) * time.Millisecond),
	}, nil
}
