package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/open-sauced/benchtrend/pkg/config"
)

var (
	configPath string
	debugMode  bool

	sugarLogger *zap.SugaredLogger
	cfg         = &config.Config{}
)

var rootCmd = &cobra.Command{
	Use:   "benchtrend",
	Short: "Turn continuous benchmark history into trends, insights and charts",
	Long: `benchtrend reads the benchmark history published by continuous
benchmarking actions (dev/bench/data.js on a gh-pages branch) and turns it
into per-metric trends, commit to commit insights and HTML charts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var logger *zap.Logger
		var err error

		if debugMode {
			logger, err = zap.NewDevelopment()
			if err != nil {
				log.Fatalf("Could not initiate debug zap logger: %v", err)
			}
		} else {
			logger, err = zap.NewProduction()
			if err != nil {
				log.Fatalf("Could not initiate production zap logger: %v", err)
			}
		}

		sugarLogger = logger.Sugar()
		sugarLogger.Debugf("initiated zap logger with level: %d", sugarLogger.Level())

		// Load the environment variables from the .env file
		err = godotenv.Load()
		if err != nil {
			sugarLogger.Debugf("Failed to load the dot env file. Continuing with existing environment: %v", err)
		}

		// Initializes configuration using a provided yaml file
		if configPath != "" {
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			sugarLogger.Infof("Configuration was set using yaml file")
		}

		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		//nolint:errcheck
		sugarLogger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to .yaml file config")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "run in debug mode")

	rootCmd.AddCommand(serveCmd, trendsCmd, renderCmd, compareCmd, normalizeCmd, discoverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
