// Package cli implements the aura command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aura-network/aura/internal/daemon"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=...".
var Version = "dev"

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "aura",
	Short: "Aura: streaks, points and rewards for productive work",
	Long: `Aura keeps a per-user ledger of points, a monthly league score, a daily
activity streak with freezes and repairs, achievements and a small shop.
Ledgers are cached locally and kept in sync with a shared remote store.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $AURA_HOME/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func loadConfig() (daemon.Config, error) {
	path := configPath
	if path == "" {
		path = daemon.ConfigPath()
	}
	return daemon.LoadConfig(path)
}

// openDaemon builds the services for a one-shot command. Logging stays
// quiet unless --debug is set.
func openDaemon(ctx context.Context) (*daemon.Daemon, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := zap.NewNop()
	if debug {
		if log, err = daemon.NewLogger("debug", true); err != nil {
			return nil, err
		}
	}
	d, err := daemon.New(ctx, cfg, Version, log)
	if err != nil {
		return nil, fmt.Errorf("start aura: %w", err)
	}
	return d, nil
}
