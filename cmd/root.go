package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/config"
	"github.com/linkgate/urlshortener/internal/logger"
)

// Cfg is the global variable that will contain the loaded configuration
// It will be accessible to all Cobra commands throughout the application
var Cfg *config.Config

// RootCmd is the base command for the CLI application
// All other commands (run-server, migrate, create, stats, deactivate) are added as subcommands
var RootCmd = &cobra.Command{
	Use:   "urlshortener",
	Short: "A URL shortener with password-protected links and click analytics",
	Long: `A URL shortener that creates short codes for long URLs, redirects visitors
while recording click analytics, protects links with passwords and expiry dates,
and monitors the health of destination URLs.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the Cobra application
// It is called from 'main.go' and handles command execution and error handling
func Execute() {
	defer logger.Sync()
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Configuration is loaded before any command executes.
	// Subcommands register themselves via their own init() functions.
	cobra.OnInitialize(initConfig)
}

// initConfig loads .env, the configuration and the logger.
func initConfig() {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()

	var err error
	Cfg, err = config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(Cfg.Log.Development); err != nil {
		fmt.Fprintf(os.Stderr, "Error initialising logger: %v\n", err)
		os.Exit(1)
	}
	logger.L().Debug("Configuration loaded", zap.String("database_driver", Cfg.Database.Driver))
}
