package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hotelops/stockpilot/internal/core/config"
	"github.com/hotelops/stockpilot/internal/infra/storage/postgres"
)

var lowOnly bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current inventory state",
	Run:   runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&lowOnly, "low", false, "only show items at or below minimum stock")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	items, err := postgres.NewItemRepo(db).List(ctx)
	if err != nil {
		slog.Error("Failed to list items", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SKU\tNAME\tSTOCK\tMIN\tVERSION\tLOW")

	for _, item := range items {
		if lowOnly && !item.LowStock() {
			continue
		}
		low := ""
		if item.LowStock() {
			low = "!"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
			item.SKU, item.Name, item.Stock, item.MinStock, item.Version, low)
	}
	_ = w.Flush()
}
