package replay

import (
	"time"

	"github.com/okian/posture/pkg/logger"
)

// Option configures a Player.
type Option func(*Player)

// WithInterval overrides the recording's frame interval.
func WithInterval(d time.Duration) Option {
	return func(p *Player) {
		if d >= 0 {
			p.interval = d
			p.override = true
		}
	}
}

// WithLoops plays the recording n times.
func WithLoops(n int) Option {
	return func(p *Player) {
		if n > 0 {
			p.loops = n
		}
	}
}

// WithStopOnError aborts the replay on the first non-backpressure failure.
func WithStopOnError(stop bool) Option {
	return func(p *Player) {
		p.stopOn = stop
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Player) {
		if l != nil {
			p.logger = l
		}
	}
}
