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

var loginCmd = &cobra.Command{
	Use:   "login [username] [password]",
	Short: "Authenticate against the inventory service and store the session",
	Args:  cobra.ExactArgs(2),
	Run:   runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		setupLogger(nil)
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := setupLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := control.NewAgent(ctx, cfg, log)
	if err != nil {
		slog.Error("Failed to initialize agent", "error", err)
		os.Exit(1)
	}

	if err := app.Login(ctx, args[0], args[1]); err != nil {
		slog.Error("Login failed", "error", err)
		os.Exit(1)
	}

	info := app.Sessions().SessionInfo()
	fmt.Printf("Logged in as %s, session valid until %s\n",
		args[0], info.ExpiresAt.Format(time.RFC3339))
}
