package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rosterforge/internal/layout"
	"rosterforge/internal/logging"
	"rosterforge/internal/queue"
	"rosterforge/internal/workflow"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var presetFlag string

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Report missing bundle files without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			l, err := ctx.loadLayout(presetFlag)
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			mgr, err := workflow.NewManager(cfg, store, logging.NewNop())
			if err != nil {
				return err
			}
			agg, err := mgr.ResolveAll(l)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			complete := 0
			rows := make([][]string, 0)
			for _, b := range agg.Sorted(l) {
				if len(b.MissingRoles) == 0 {
					complete++
					continue
				}
				textures := layout.Textures(b.Character)
				rows = append(rows, []string{
					b.Character,
					joinDisplay(b.MissingRoles),
					textures.Select,
				})
			}
			if len(rows) == 0 {
				fmt.Fprintf(out, "All %d bundles complete\n", complete)
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Character", "Missing", "Select Icon Texture"},
				rows,
			))
			fmt.Fprintf(out, "%d complete, %d with gaps\n", complete, len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&presetFlag, "preset", "", "Roster preset JSON")
	return cmd
}
