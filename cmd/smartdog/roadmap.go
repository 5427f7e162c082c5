package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/smartdog/pet-contribution/internal/roadmap"
)

func roadmapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roadmap",
		Short: "Show the campaign roadmap and contribution count",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			count := newCounter(newClient(), db).Read(cmd.Context())
			if jsonOutput(v) {
				return printJSON(map[string]any{
					"count":  count,
					"phases": roadmap.Phases(),
				})
			}
			if err := roadmap.Render(os.Stdout, roadmap.LookupTheme(cfg.Theme), count); err != nil {
				return fmt.Errorf("render roadmap: %w", err)
			}
			return nil
		},
	}
}

func countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of contributions so far",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			count := newCounter(newClient(), db).Read(cmd.Context())
			if jsonOutput(v) {
				return printJSON(map[string]int{"count": count})
			}
			fmt.Printf("%s %s\n", roadmap.FormatCount(count), roadmap.CounterLabel)
			return nil
		},
	}
}
