package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rosterforge/internal/preflight"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configured paths and mapping documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			failed := 0
			for _, result := range preflight.RunAll(cfg) {
				label := "OK  "
				if !result.Passed {
					label = "FAIL"
					failed++
				}
				if colorize {
					if result.Passed {
						label = ansiGreen + label + ansiReset
					} else {
						label = ansiRed + label + ansiReset
					}
				}
				fmt.Fprintf(out, "%s %-26s %s\n", label, result.Name, result.Detail)
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}
