package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/smc-ppi/sumd-core/pkg/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "sumd",
	Short: "Supervised molecular dynamics sampling",
	Long: `sumd drives a supervised molecular dynamics loop: each round evaluates
several perturbed copies of the current seed structure in parallel, ranks
them by inter-group centroid distance and carries the best one forward
until the distance threshold or the iteration budget is reached.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; missing files are fine.
		_ = godotenv.Load()
		logger.SetDefault(logger.NewText(logLevel, os.Stdout))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
