package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/db"
	"github.com/sells-group/custvalue-cli/internal/export"
	"github.com/sells-group/custvalue-cli/internal/quality"
	"github.com/sells-group/custvalue-cli/internal/resilience"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run data-quality checks against the source database",
	Long: `Runs a suite of scalar SQL checks (primary keys, foreign keys, valid values,
completeness, consistency and volumetry) against the Postgres source and
reports PASS, FAIL or ERROR for each. A check that errors does not stop the
suite.

Examples:
  custvalue validate
  custvalue validate --checks checks.yaml --strict`,
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.String("checks", "", "YAML check suite (overrides config; default: built-in suite)")
	f.Int("min-customers", 0, "volumetry threshold for customers (overrides config)")
	f.Int("min-orders", 0, "volumetry threshold for orders (overrides config)")
	f.Bool("strict", false, "exit non-zero unless every check passes")

	rootCmd.AddCommand(validateCmd)
}

func loadSuite() ([]quality.Check, error) {
	if cfg.Quality.ChecksPath != "" {
		return quality.LoadChecks(cfg.Quality.ChecksPath)
	}
	return quality.DefaultChecks(cfg.Quality.MinCustomers, cfg.Quality.MinOrders), nil
}

func runValidate(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signalContext(cmd)
	defer stop()

	if v, ok := changedString(cmd, "checks"); ok {
		cfg.Quality.ChecksPath = v
	}
	if v, ok := changedInt(cmd, "min-customers"); ok {
		cfg.Quality.MinCustomers = v
	}
	if v, ok := changedInt(cmd, "min-orders"); ok {
		cfg.Quality.MinOrders = v
	}
	if err := cfg.Validate("validate"); err != nil {
		return err
	}
	strict, _ := cmd.Flags().GetBool("strict")

	checks, err := loadSuite()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("command", "validate"), zap.String("run_id", runID))
	out := cmd.OutOrStdout()

	var (
		rows  int
		paths []string
	)
	run := startRun(ctx, "validate", runID, runParams(cmd))
	defer func() { run.finish(ctx, rows, paths, err) }()

	pool, err := db.Connect(ctx, cfg.Source.DatabaseURL, resilience.DefaultRetryConfig())
	if err != nil {
		return err
	}
	defer pool.Close()

	bar := progressbar.Default(int64(len(checks)), "running checks")
	runner := quality.NewRunner(pool)
	runner.OnResult = func(quality.Result) { _ = bar.Add(1) }

	log.Info("starting quality suite", zap.Int("checks", len(checks)))
	report, err := runner.Run(ctx, checks)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	printQualityReport(out, report)
	rows = report.Total

	exporter, err := export.NewExporter(cfg.Export.Dir, cfg.Export.Format, runID)
	if err != nil {
		return err
	}
	paths, err = exporter.Write("quality", export.QualityReport("quality_report", report))
	if err != nil {
		return err
	}
	for _, p := range paths {
		printer.Fprintf(out, "Wrote %s\n", p)
	}

	if strict && !report.OK() {
		return eris.Errorf("validate: %d of %d checks did not pass", report.Failed+report.Errors, report.Total)
	}
	return nil
}
