package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/posture/internal/config"
	"github.com/okian/posture/pkg/logger"
)

// cli carries state shared by subcommands once the root pre-run has loaded
// configuration.
type cli struct {
	configPath string
	cfg        *config.Config
	log        logger.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "posture",
		Short: "Posture classifies skeletal tracking frames into debounced posture transitions",
		Long: `Posture ingests time-aligned skeleton and color frames, classifies each tracked
subject's posture, debounces it into entered/exited transitions and projects the
head anchor into color-image pixels for an overlay.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML config file (overrides POSTURE_CONFIG)")

	root.AddCommand(newServeCmd(c), newReplayCmd(c), newVersionCmd())
	return root
}

// setup loads configuration (defaults -> file -> env) and initializes logging
// on the command's stderr.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr()), logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	c.cfg = cfg
	c.log = logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(cmd.Context(), "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}
