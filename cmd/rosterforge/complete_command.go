package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"rosterforge/internal/logging"
	"rosterforge/internal/queue"
	"rosterforge/internal/workflow"
)

func newCompleteCommand(ctx *commandContext) *cobra.Command {
	var presetFlag string
	var commitFlag bool

	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Run the full completion pipeline for the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			l, err := ctx.loadLayout(presetFlag)
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			mgr, err := workflow.NewManager(cfg, store, logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			tree, agg, err := mgr.CompleteAndStage(runCtx, l)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := renderAggregate(out, agg, l); err != nil {
				return err
			}

			if !commitFlag {
				fmt.Fprintf(out, "Staged tree: %s\n", tree.Root)
				fmt.Fprintf(out, "Apply with: rosterforge commit %s\n", tree.ID)
				return nil
			}
			if err := mgr.Commit(runCtx, tree); err != nil {
				return fmt.Errorf("commit staged tree: %w", err)
			}
			fmt.Fprintf(out, "Output written to %s\n", cfg.Paths.OutputDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&presetFlag, "preset", "", "Roster preset JSON (defaults to the configured preset or the stock grid)")
	cmd.Flags().BoolVar(&commitFlag, "commit", false, "Apply the staged tree to the output directory after a successful run")
	return cmd
}
