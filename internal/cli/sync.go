package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hotelops/stockpilot/internal/control"
	"github.com/hotelops/stockpilot/internal/core/config"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync round against the inventory service and exit",
	Run:   runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		setupLogger(nil)
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := setupLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	app, err := control.NewAgent(ctx, cfg, log)
	if err != nil {
		slog.Error("Failed to initialize agent", "error", err)
		os.Exit(1)
	}

	if err := app.Sessions().Initialize(ctx); err != nil {
		slog.Error("Failed to initialize session", "error", err)
		os.Exit(1)
	}
	defer app.Sessions().Cleanup()

	if !app.Sessions().IsAuthenticated() {
		slog.Error("No valid session, run login first")
		os.Exit(1)
	}

	if err := app.SyncNow(ctx); err != nil {
		slog.Error("Sync failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("Sync complete")
}
