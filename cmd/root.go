package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/linkmill/partners-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "partners-cli",
	Short: "Coupang Partners product selection and research pipeline",
	Long:  "Searches and groups Coupang listings, generates affiliate deep links, and runs batched AI research over selected products.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
