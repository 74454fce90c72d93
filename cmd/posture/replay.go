package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/posture/internal/app"
	"github.com/okian/posture/internal/domain/types"
	"github.com/okian/posture/internal/replay"
)

const (
	defaultReplayURL   = "http://localhost:9080"
	drainPollInterval  = 10 * time.Millisecond
	drainTimeout       = 10 * time.Second
	reportTransitions  = 1000
	defaultSynthPeriod = 15
)

type replayFlags struct {
	url         string
	local       bool
	generate    int
	period      int
	interval    time.Duration
	loops       int
	stopOnError bool
}

// replayReport is printed as JSON when a replay finishes.
type replayReport struct {
	replay.Stats
	Transitions []types.Transition `json:"transitions,omitempty"`
}

func newReplayCmd(c *cli) *cobra.Command {
	f := &replayFlags{}
	cmd := &cobra.Command{
		Use:   "replay [recording.yaml]",
		Short: "Replay a recorded or synthetic frame sequence",
		Long: `Replays frames from a YAML recording (or a synthetic sequence with --generate)
into a running service over HTTP, or into an in-process pipeline with --local.
With --local the resulting transitions are included in the report.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := f.recording(args)
			if err != nil {
				return err
			}
			report, err := c.replay(cmd.Context(), rec, f)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().StringVar(&f.url, "url", defaultReplayURL, "base URL of a running posture service")
	cmd.Flags().BoolVar(&f.local, "local", false, "run the pipeline in-process instead of posting to --url")
	cmd.Flags().IntVar(&f.generate, "generate", 0, "number of synthetic frames to replay when no recording is given")
	cmd.Flags().IntVar(&f.period, "period", defaultSynthPeriod, "frames per posture for --generate")
	cmd.Flags().DurationVar(&f.interval, "interval", -1, "pause between frames (default: the recording's interval)")
	cmd.Flags().IntVar(&f.loops, "loops", 1, "number of times to play the recording")
	cmd.Flags().BoolVar(&f.stopOnError, "stop-on-error", false, "abort on the first rejected frame")
	return cmd
}

func (f *replayFlags) recording(args []string) (*replay.Recording, error) {
	switch {
	case len(args) == 1:
		return replay.LoadFile(args[0])
	case f.generate > 0:
		return replay.Generate(f.generate, f.period, 0), nil
	}
	return nil, errors.New("a recording file or --generate is required")
}

func (f *replayFlags) options(c *cli) []replay.Option {
	opts := []replay.Option{
		replay.WithLoops(f.loops),
		replay.WithStopOnError(f.stopOnError),
		replay.WithLogger(c.log.Named("replay")),
	}
	if f.interval >= 0 {
		opts = append(opts, replay.WithInterval(f.interval))
	}
	return opts
}

func (c *cli) replay(ctx context.Context, rec *replay.Recording, f *replayFlags) (*replayReport, error) {
	if !f.local {
		stats, err := replay.NewPlayer(replay.NewHTTPSink(f.url, nil), f.options(c)...).Play(ctx, rec)
		return &replayReport{Stats: stats}, err
	}

	svc, err := c.newService()
	if err != nil {
		return nil, err
	}
	if err := svc.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	stats, err := replay.NewPlayer(replay.NewServiceSink(svc), f.options(c)...).Play(ctx, rec)
	if err != nil {
		return &replayReport{Stats: stats}, err
	}
	if err := waitProcessed(ctx, svc, uint64(stats.Sent)); err != nil {
		return &replayReport{Stats: stats}, err
	}
	trs, err := svc.Transitions(ctx, reportTransitions)
	if err != nil {
		return &replayReport{Stats: stats}, err
	}
	// Oldest first reads like the replay.
	for i, j := 0, len(trs)-1; i < j; i, j = i+1, j-1 {
		trs[i], trs[j] = trs[j], trs[i]
	}
	return &replayReport{Stats: stats, Transitions: trs}, nil
}

// waitProcessed blocks until the worker has finished n frames.
func waitProcessed(ctx context.Context, svc *service.Service, n uint64) error {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		if svc.GetStats().FramesProcessed >= n {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %d frames: %w", n, ctx.Err())
		case <-ticker.C:
		}
	}
}
