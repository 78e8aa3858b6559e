package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/RivalWatch/internal/sites"
)

// sitesCmd creates the "sites" subcommand listing the site catalog.
func sitesCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List configured sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg)
			if err != nil {
				return err
			}

			list := catalog.All()
			if kind != "" {
				list = catalog.ByKind(sites.Kind(kind))
			}

			rows := make([][]string, 0, len(list))
			for _, s := range list {
				news := "-"
				switch {
				case s.News.Only:
					news = "only"
				case s.HasNewsFallback():
					news = "fallback"
				}
				rows = append(rows, []string{
					s.Name, string(s.Kind), s.Label(), s.Escalation.Start + "-" + s.Escalation.Max, news, s.URL,
				})
			}
			return writeTable(os.Stdout, []string{"NAME", "KIND", "MODULE", "TIERS", "NEWS", "URL"}, rows)
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "only list sites of this kind: competitor or industry")
	return cmd
}
