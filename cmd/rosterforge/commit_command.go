package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rosterforge/internal/logging"
	"rosterforge/internal/staging"
)

func newCommitCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit <staging-id>",
		Short: "Apply a staged tree to the output directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			tree, err := staging.Open(cfg.Paths.StagingDir, args[0])
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := staging.Commit(runCtx, tree, cfg.Paths.OutputDir, logger); err != nil {
				return fmt.Errorf("commit staged tree: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Output written to %s\n", cfg.Paths.OutputDir)
			return nil
		},
	}
	return cmd
}
