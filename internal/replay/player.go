package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	framequeue "github.com/okian/posture/internal/adapters/mq/queue"
	"github.com/okian/posture/internal/domain/types"
	"github.com/okian/posture/pkg/logger"
)

// Stats summarizes one replay run.
type Stats struct {
	Session  string        `json:"session"`
	Sent     int           `json:"sent"`
	Dropped  int           `json:"dropped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Player paces a recording into a Sink.
type Player struct {
	sink     Sink
	interval time.Duration
	override bool
	loops    int
	stopOn   bool
	logger   logger.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPlayer creates a player that plays each recording once at its own interval.
func NewPlayer(sink Sink, opts ...Option) *Player {
	p := &Player{
		sink:  sink,
		loops: 1,
		sleep: sleepCtx,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logger.Get().Named("replay")
	}
	return p
}

// Play sends every frame of rec in order. Dropped frames are counted and
// skipped; other sink errors are counted too unless WithStopOnError is set.
// Frame numbers keep increasing across loops, and every frame is sent with an id
// unique to the session so a sink may safely resend it.
func (p *Player) Play(ctx context.Context, rec *Recording) (Stats, error) {
	stats := Stats{Session: rec.Session}
	start := time.Now()

	interval := rec.Interval
	if p.override {
		interval = p.interval
	}

	p.logger.Info(ctx, "replay started",
		logger.String("session", rec.Session),
		logger.Int("frames", len(rec.Frames)),
		logger.Int("loops", p.loops),
		logger.Duration("interval", interval),
	)

	var offset uint64
	for loop := 0; loop < p.loops; loop++ {
		var last uint64
		for i := range rec.Frames {
			if loop > 0 || i > 0 {
				if err := p.sleep(ctx, interval); err != nil {
					stats.Duration = time.Since(start)
					return stats, err
				}
			}

			frame := rec.Frames[i]
			if frame.Number != 0 {
				frame.Number += offset
				last = frame.Number
			}
			frame.ID = frameID(rec.Session, frame.ID, loop, i)
			if err := p.send(ctx, &frame, &stats); err != nil {
				stats.Duration = time.Since(start)
				return stats, err
			}
		}
		offset = last
	}

	stats.Duration = time.Since(start)
	p.logger.Info(ctx, "replay finished",
		logger.String("session", stats.Session),
		logger.Int("sent", stats.Sent),
		logger.Int("dropped", stats.Dropped),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func (p *Player) send(ctx context.Context, frame *types.Frame, stats *Stats) error {
	err := p.sink.Send(ctx, frame)
	switch {
	case err == nil:
		stats.Sent++
		return nil
	case errors.Is(err, framequeue.ErrQueueFull):
		stats.Dropped++
		p.logger.Debug(ctx, "frame dropped", logger.Uint64("frame", frame.Number))
		return nil
	case ctx.Err() != nil:
		return ctx.Err()
	}

	stats.Failed++
	p.logger.Warn(ctx, "frame send failed", logger.Uint64("frame", frame.Number), logger.Error(err))
	if p.stopOn {
		return err
	}
	return nil
}

// frameID keeps a recorded id, suffixed by the loop after the first, and
// otherwise derives one from the frame's position.
func frameID(session, recorded string, loop, index int) string {
	switch {
	case recorded == "":
		return fmt.Sprintf("%s/%d/%d", session, loop, index)
	case loop > 0:
		return fmt.Sprintf("%s/%d", recorded, loop)
	}
	return recorded
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
