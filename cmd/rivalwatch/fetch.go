package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// fetchCmd creates the "fetch" subcommand.
func fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [company...]",
		Short: "Scrape competitor newsrooms",
		Long: `Scrape competitor newsrooms for items inside the report window and write
one artifact per company. With no arguments every competitor is fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.signalContext()
			defer cancel()

			if _, err := a.competitorPhase(ctx, args); err != nil {
				return fmt.Errorf("fetch competitors: %w", err)
			}
			a.metrics.LogSummary("fetch complete")
			fmt.Printf("   Artifacts: %s\n", a.store.Dir())
			return nil
		},
	}
}

// industryCmd creates the "industry" subcommand.
func industryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "industry [site...]",
		Short: "Scrape industry publications",
		Long: `Scrape industry publications for items inside the report window and merge
them into the industry artifact, grouped by module.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := a.signalContext()
			defer cancel()

			if _, err := a.industryPhase(ctx, args); err != nil {
				return fmt.Errorf("fetch industry: %w", err)
			}
			a.metrics.LogSummary("industry fetch complete")
			fmt.Printf("   Artifacts: %s\n", a.store.Dir())
			return nil
		},
	}
}
