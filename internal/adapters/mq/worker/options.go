package worker

import (
	"github.com/okian/posture/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRenderer sets the render sink.
func WithRenderer(r Renderer) Option {
	return func(w *InMemoryWorker) { w.renderer = r }
}

// WithIndicator sets the transition indicator sink.
func WithIndicator(i Indicator) Option {
	return func(w *InMemoryWorker) { w.indicator = i }
}

// WithReadout sets the joint readout sink.
func WithReadout(r ReadoutSink) Option {
	return func(w *InMemoryWorker) { w.readout = r }
}

// WithRecorder sets the output store.
func WithRecorder(r Recorder) Option {
	return func(w *InMemoryWorker) { w.recorder = r }
}
