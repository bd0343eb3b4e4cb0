package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/crawlsched/internal/config"
	"github.com/jonesrussell/crawlsched/internal/domain"
	"github.com/jonesrussell/crawlsched/internal/store"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show pool sizes by status for scheduled and predefined work",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context())
		},
	}
}

func runStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := cfg.Database.OpenDB()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	workStore := store.NewWorkStore(db)

	kinds := []domain.Kind{domain.KindScheduled, domain.KindPredefined}
	rows := make([]table.Row, 0)
	for _, kind := range kinds {
		counts, countErr := workStore.CountByStatus(ctx, kind)
		if countErr != nil {
			return fmt.Errorf("count %s by status: %w", kind, countErr)
		}
		for _, c := range counts {
			rows = append(rows, table.Row{kind, c.Status, c.Count})
		}
	}

	renderStatusTable(rows)
	return nil
}

func renderStatusTable(rows []table.Row) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Pool", "Status", "Count"})
	for _, row := range rows {
		t.AppendRow(row)
	}
	t.Render()
}
