package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "custvalue",
	Short: "Customer value analytics: RFM segmentation, lifetime value and cohort retention",
	Long: `Reads delivered-order data from Postgres, SQLite, MySQL or CSV/XLSX exports,
scores customers by recency, frequency and monetary value, assigns business
segments, estimates lifetime value, builds cohort retention matrices and runs
data-quality checks. Results are written as CSV, JSON or XLSX, and every run
is recorded in a run history inspected with "custvalue runs".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applySourceOverrides(cmd, &c.Source)
		applyExportOverrides(cmd, &c.Export)
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

func init() {
	f := rootCmd.PersistentFlags()
	f.String("driver", "", "source driver: postgres, sqlite, mysql or csv (overrides config)")
	f.String("database-url", "", "source DSN (overrides config)")
	f.String("customers", "", "customers CSV/XLSX with precomputed RFM columns (csv driver)")
	f.String("orders", "", "orders CSV/XLSX with one row per payment (csv driver)")
	f.String("out-dir", "", "output directory (overrides config)")
	f.String("format", "", "output format: csv, json or xlsx (overrides config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
