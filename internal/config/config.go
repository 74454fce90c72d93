// Package config defines service configuration and its loader.
//
// Values are layered defaults -> optional YAML file -> POSTURE_* environment.
package config

import (
	"fmt"

	"github.com/okian/posture/internal/domain/pipeline"
	"github.com/okian/posture/internal/domain/posture"
	"github.com/okian/posture/internal/domain/projection"
	"github.com/okian/posture/internal/domain/skeleton"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// FrameQueueSize bounds frames waiting for the pipeline.
	FrameQueueSize int `koanf:"frame_queue_size"`

	// MaxSubjects caps skeletons processed per frame.
	MaxSubjects int `koanf:"max_subjects"`

	// ColorFormat names the color stream format, e.g. "rgb_640x480_30".
	ColorFormat string `koanf:"color_format"`

	// XAxis is the skeleton-space x convention: subject_left or subject_right.
	XAxis string `koanf:"x_axis"`

	// StateKey selects debounce keying: slot or tracking_id.
	StateKey string `koanf:"state_key"`

	// ResetOnSubjectLoss forgets a subject's posture once it leaves the scene.
	ResetOnSubjectLoss bool `koanf:"reset_on_subject_loss"`

	// OverlaySize is the head overlay square side in pixels.
	OverlaySize int `koanf:"overlay_size"`

	// StallTimeoutMS is how long without skeleton frames before a warning.
	StallTimeoutMS int `koanf:"stall_timeout_ms"`

	// TransitionHistory is how many transitions GET /transitions can return.
	TransitionHistory int `koanf:"transition_history"`

	// DedupeSize is how many source frame ids are remembered to ignore redeliveries.
	DedupeSize int `koanf:"dedupe_size"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		FrameQueueSize:     64,
		MaxSubjects:        skeleton.DefaultMaxSubjects,
		ColorFormat:        projection.DefaultColorFormat.String(),
		XAxis:              posture.DefaultAxis.String(),
		StateKey:           pipeline.KeyBySlot.String(),
		ResetOnSubjectLoss: false,
		OverlaySize:        projection.DefaultOverlaySize,
		StallTimeoutMS:     3000,
		TransitionHistory:  256,
		DedupeSize:         4096,
	}
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FrameQueueSize < 1:
		return fmt.Errorf("%w: frame_queue_size must be positive", ErrInvalidConfig)
	case c.MaxSubjects < 1:
		return fmt.Errorf("%w: max_subjects must be positive", ErrInvalidConfig)
	case c.OverlaySize < 1:
		return fmt.Errorf("%w: overlay_size must be positive", ErrInvalidConfig)
	case c.StallTimeoutMS < 1:
		return fmt.Errorf("%w: stall_timeout_ms must be positive", ErrInvalidConfig)
	}
	if _, err := projection.ParseColorFormat(c.ColorFormat); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := posture.ParseAxis(c.XAxis); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := pipeline.ParseKeyPolicy(c.StateKey); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
