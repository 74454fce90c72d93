package pipeline

import (
	"time"

	"github.com/okian/posture/internal/domain/debounce"
	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/pkg/logger"
)

// Option applies a configuration option to the Orchestrator.
type Option func(*Orchestrator)

// WithClassifier sets the posture classifier.
func WithClassifier(c *posture.Classifier) Option {
	return func(o *Orchestrator) {
		if c != nil {
			o.classifier = c
		}
	}
}

// WithMachine sets the debounce machine.
func WithMachine(m *debounce.Machine) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.machine = m
		}
	}
}

// WithProjector sets the coordinate projector.
func WithProjector(p *projection.Projector) Option {
	return func(o *Orchestrator) {
		if p != nil {
			o.projector = p
		}
	}
}

// WithMaxSubjects bounds how many skeletons per frame are processed.
func WithMaxSubjects(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxSubjects = n
		}
	}
}

// WithKeyPolicy selects how subjects map to debounce state.
func WithKeyPolicy(p KeyPolicy) Option {
	return func(o *Orchestrator) {
		o.keyPolicy = p
	}
}

// WithResetOnSubjectLoss drops a key's state once its subject disappears.
func WithResetOnSubjectLoss(enabled bool) Option {
	return func(o *Orchestrator) {
		o.resetOnLoss = enabled
	}
}

// WithClock overrides the time source used for frames without a capture time.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
