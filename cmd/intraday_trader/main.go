package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"intraday_trading/internal/config"
	"intraday_trading/internal/logger"
)

const VersionFile = "version.latest"

var (
	cfg          *config.Config
	strategyPath string
	rotator      *logger.Rotator
)

var rootCmd = &cobra.Command{
	Use:           "intraday_trader",
	Short:         "Backtest and run intraday equity strategies on 5-minute bars",
	Version:       readVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load configuration first to get logger settings
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		rotator = logger.Setup(cfg.LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)
		config.PrintEnvFile()
		log.WithFields(cfg.Fields()).Infof("Intraday Trader %s initialized", cmd.Root().Version)
		return cfg.EnsureDirs()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&strategyPath, "strategy", "s", "strategy.yaml", "strategy parameter file")
	rootCmd.AddCommand(backtestCmd, liveCmd, pairsCmd)
}

// main is the entry point of the application.
func main() {
	// Create a context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Warn("Shutting down: system signal received")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.WithError(err).Error("Run failed")
	}
	if rotator != nil {
		rotator.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}
