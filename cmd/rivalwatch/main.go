package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/RivalWatch/internal/config"
)

var (
	cfgFile    string
	verbose    bool
	windowEnd  string
	windowDays int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rivalwatch",
		Short: "RivalWatch: weekly competitor and industry news digest",
		Long: `RivalWatch collects recent news from competitor newsrooms and industry
publications, summarizes it, validates it and mails an HTML digest.

Stages:
  fetch       scrape competitor newsrooms into per-company artifacts
  industry    scrape industry publications into the industry artifact
  integrate   summarize, validate, render and email the artifacts
  run         all of the above in one process`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&windowEnd, "date", "", "window end date YYYY-MM-DD (default today)")
	rootCmd.PersistentFlags().IntVar(&windowDays, "days", 0, "window length in days (0 = use config)")

	rootCmd.AddCommand(fetchCmd())
	rootCmd.AddCommand(industryCmd())
	rootCmd.AddCommand(integrateCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(sitesCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("RivalWatch %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Window:\n")
			fmt.Printf("  Days:              %d\n", cfg.Window.Days)
			fmt.Printf("  End:               %s\n", orDefault(cfg.Window.Now, "today"))
			fmt.Printf("\nWorkers:\n")
			fmt.Printf("  Competitors:       %d\n", cfg.Workers.Competitors)
			fmt.Printf("  Industry:          %d\n", cfg.Workers.Industry)
			fmt.Printf("  Phase Timeout:     %s\n", cfg.Workers.PhaseTimeout)
			fmt.Printf("\nScraper:\n")
			fmt.Printf("  Timeout:           %s\n", cfg.Scraper.Timeout)
			fmt.Printf("  Max Retries:       %d\n", cfg.Scraper.MaxRetries)
			fmt.Printf("  Sites File:        %s\n", orDefault(cfg.Scraper.SitesFile, "built-in"))
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Browser.Enabled)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("\nLLM:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.LLM.Enabled())
			fmt.Printf("  Base URL:          %s\n", cfg.LLM.BaseURL)
			fmt.Printf("  Model:             %s\n", cfg.LLM.Model)
			fmt.Printf("  Translate:         %v\n", cfg.LLM.Translate)
			fmt.Printf("\nEmail:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Email.Enabled())
			fmt.Printf("  Server:            %s:%d\n", cfg.Email.SMTPServer, cfg.Email.SMTPPort)
			fmt.Printf("  Recipients:        %d\n", len(cfg.Email.To))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Artifacts:         %s\n", cfg.Storage.ArtifactsDir)
			fmt.Printf("  Output:            %s\n", cfg.Storage.OutputDir)
			fmt.Printf("  MongoDB:           %v\n", cfg.Storage.Mongo.URI != "")
			return nil
		},
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
