package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// runCmd creates the "run" subcommand chaining every stage.
func runCmd() *cobra.Command {
	var opts integrateOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, integrate and email in one process",
		Long: `Run the competitor phase, the industry phase and the integrate stage in
order. A failed or timed-out phase still hands its partial results on.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.signalContext()
			defer cancel()

			if _, err := a.competitorPhase(ctx, nil); err != nil {
				if ctx.Err() != nil {
					return err
				}
				a.logger.Error("competitor phase failed", "error", err)
			}
			if _, err := a.industryPhase(ctx, nil); err != nil {
				if ctx.Err() != nil {
					return err
				}
				a.logger.Error("industry phase failed", "error", err)
			}
			if err := a.integrate(ctx, opts); err != nil {
				return fmt.Errorf("integrate: %w", err)
			}

			a.metrics.LogSummary("run complete")
			fmt.Println()
			return a.metrics.WriteText(cmd.OutOrStdout())
		},
	}
	opts.bind(cmd)
	return cmd
}
