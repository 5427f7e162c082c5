package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/smartdog/pet-contribution/internal/bundle"
	"github.com/smartdog/pet-contribution/internal/cli"
	"github.com/smartdog/pet-contribution/internal/pet"
	"github.com/smartdog/pet-contribution/internal/store"
)

func historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List contributions sent from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			receipts, err := db.ListReceipts(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput(v) {
				return printJSON(receipts)
			}
			if len(receipts) == 0 {
				fmt.Println("Nenhuma contribuição registrada.")
				return nil
			}
			renderHistory(receipts)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum receipts to list (0 = all)")
	return cmd
}

func renderHistory(receipts []*store.Receipt) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Data", "Protocolo", "Fluxo", "Espécie", "Raça", "Sexo", "Idade", "Idade humana"})
	for _, r := range receipts {
		tw.AppendRow(table.Row{
			r.CreatedAt.Local().Format("02/01/2006 15:04"),
			r.Session,
			r.Variant,
			pet.Species(r.Species).Label(),
			r.Breed,
			pet.Sex(r.Sex).Label(),
			r.Age,
			cli.FormatHumanAge(r.HumanAge),
		})
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(receipts)})
	tw.Render()
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the contribution history and saved results to a ZIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			receipts, err := db.ListReceipts(cmd.Context(), 0)
			if err != nil {
				return err
			}
			if out == "" {
				out = defaultExportPath(cfg.DataDir)
			}
			stats, err := bundle.Export(out, receipts, bundle.ResultsDir(cfg.DataDir))
			if err != nil {
				return err
			}
			if jsonOutput(v) {
				return printJSON(map[string]any{"path": out, "receipts": stats.Receipts, "images": stats.Images, "bytes": stats.Bytes})
			}
			fmt.Printf("%s: %d contribuições, %d imagens (%d bytes)\n", out, stats.Receipts, stats.Images, stats.Bytes)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default <data-dir>/exports/smartdog-<timestamp>.zip)")
	return cmd
}
