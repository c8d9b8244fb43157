package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/custvalue-cli/internal/config"
)

// applySourceOverrides copies explicitly set source flags onto c.
func applySourceOverrides(cmd *cobra.Command, c *config.SourceConfig) {
	if v, ok := changedString(cmd, "driver"); ok {
		c.Driver = v
	}
	if v, ok := changedString(cmd, "database-url"); ok {
		c.DatabaseURL = v
	}
	if v, ok := changedString(cmd, "customers"); ok {
		c.CustomersPath = v
		if !cmd.Flags().Changed("driver") {
			c.Driver = config.DriverCSV
		}
	}
	if v, ok := changedString(cmd, "orders"); ok {
		c.OrdersPath = v
		if !cmd.Flags().Changed("driver") {
			c.Driver = config.DriverCSV
		}
	}
}

func applyExportOverrides(cmd *cobra.Command, c *config.ExportConfig) {
	if v, ok := changedString(cmd, "out-dir"); ok {
		c.Dir = v
	}
	if v, ok := changedString(cmd, "format"); ok {
		c.Format = v
	}
}

func changedString(cmd *cobra.Command, name string) (string, bool) {
	f := cmd.Flags().Lookup(name)
	if f == nil || !f.Changed {
		return "", false
	}
	return f.Value.String(), true
}

func changedInt(cmd *cobra.Command, name string) (int, bool) {
	if !cmd.Flags().Changed(name) {
		return 0, false
	}
	v, err := cmd.Flags().GetInt(name)
	return v, err == nil
}

func changedFloat(cmd *cobra.Command, name string) (float64, bool) {
	if !cmd.Flags().Changed(name) {
		return 0, false
	}
	v, err := cmd.Flags().GetFloat64(name)
	return v, err == nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
