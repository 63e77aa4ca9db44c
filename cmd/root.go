package cmd

import (
	"fmt"
	"log"
	"os"

	"citizen-kiosk/pkg/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:     "kiosk",
	Short:   "Citizen services kiosk backend",
	Version: Version,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// Execute runs the root command and exits non-zero on error
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads config and the logger shared by every subcommand
func bootstrap() (*utils.Config, *zap.Logger, error) {
	config, err := utils.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using production defaults.", err)
		logger, _ = zap.NewProduction()
	}

	return config, logger, nil
}
