package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rosterforge/internal/logging"
	"rosterforge/internal/queue"
	"rosterforge/internal/staging"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and maintain the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runsList(ctx, cmd)
		},
	}

	runsCmd.AddCommand(newRunsRetryCommand(ctx))
	runsCmd.AddCommand(newRunsClearCommand(ctx))
	runsCmd.AddCommand(newRunsHealthCommand(ctx))
	runsCmd.AddCommand(newRunsTreesCommand(ctx))
	runsCmd.AddCommand(newRunsCleanCommand(ctx))
	return runsCmd
}

func withStore(ctx *commandContext, fn func(*queue.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func runsList(ctx *commandContext, cmd *cobra.Command) error {
	return withStore(ctx, func(store *queue.Store) error {
		items, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "Ledger is empty")
			return nil
		}
		rows := make([][]string, 0, len(items))
		for _, item := range items {
			detail := item.ProgressMessage
			if item.ErrorMessage != "" {
				detail = item.ErrorMessage
			}
			rows = append(rows, []string{
				strconv.FormatInt(item.ID, 10),
				item.Character,
				string(item.Status),
				item.UpdatedAt.Local().Format("2006-01-02 15:04:05"),
				detail,
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"ID", "Character", "Status", "Updated", "Detail"},
			rows,
		))
		return nil
	})
}

func newRunsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Reset failed bundles back to discovered",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
				if err != nil || id <= 0 {
					return fmt.Errorf("invalid bundle id %q", arg)
				}
				ids = append(ids, id)
			}
			return withStore(ctx, func(store *queue.Store) error {
				count, err := store.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset %d bundle(s)\n", count)
				return nil
			})
		},
	}
}

func newRunsClearCommand(ctx *commandContext) *cobra.Command {
	var clearFailed, clearStaged, clearAll bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *queue.Store) error {
				var (
					count int64
					err   error
					label string
				)
				switch {
				case clearAll:
					count, err = store.Clear(cmd.Context())
					label = "entries"
				case clearFailed:
					count, err = store.ClearFailed(cmd.Context())
					label = "failed entries"
				case clearStaged:
					count, err = store.ClearStaged(cmd.Context())
					label = "staged entries"
				default:
					return fmt.Errorf("pass one of --failed, --staged or --all")
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d %s\n", count, label)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove failed bundles")
	cmd.Flags().BoolVar(&clearStaged, "staged", false, "Remove staged bundles")
	cmd.Flags().BoolVar(&clearAll, "all", false, "Remove everything")
	return cmd
}

func newRunsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the ledger database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, func(store *queue.Store) error {
				health, err := store.CheckHealth(cmd.Context())
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database: %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists: %v  Readable: %v  Table: %v  Integrity: %v\n",
					health.DatabaseExists, health.DatabaseReadable, health.TableExists, health.IntegrityCheck)
				if len(health.MissingColumns) > 0 {
					fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
				}
				fmt.Fprintf(out, "Bundles tracked: %d\n", health.TotalItems)
				if health.Error != "" {
					fmt.Fprintf(out, "Error: %s\n", health.Error)
				}
				return err
			})
		},
	}
}

func newRunsTreesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trees",
		Short: "List staged trees awaiting commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			trees, err := staging.ListTrees(cfg.Paths.StagingDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(trees) == 0 {
				fmt.Fprintln(out, "No staged trees")
				return nil
			}
			rows := make([][]string, 0, len(trees))
			for _, tree := range trees {
				rows = append(rows, []string{
					tree.ID,
					tree.ModTime.Local().Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%d MiB", tree.Size>>20),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Modified", "Size"}, rows))
			return nil
		},
	}
}

func newRunsCleanCommand(ctx *commandContext) *cobra.Command {
	var maxAgeHours int

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale staged trees",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			result := staging.CleanStale(cfg.Paths.StagingDir, time.Duration(maxAgeHours)*time.Hour, logger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d stale tree(s)\n", len(result.Removed))
			for _, failure := range result.Errors {
				fmt.Fprintf(out, "failed: %s: %v\n", failure.Path, failure.Error)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeHours, "max-age", 72, "Remove trees older than this many hours")
	return cmd
}
