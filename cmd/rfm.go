package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/export"
	"github.com/sells-group/custvalue-cli/internal/quality"
	"github.com/sells-group/custvalue-cli/internal/rfm"
	"github.com/sells-group/custvalue-cli/internal/source"
)

var rfmCmd = &cobra.Command{
	Use:   "rfm",
	Short: "Score customers by recency, frequency and monetary value and assign segments",
	Long: `Loads one RFM row per customer, validates it, scores each dimension into
quantile bins (recency inverted), computes the weighted composite score,
classifies every customer into one of twelve segments and summarizes each
segment with a recommended action.

Examples:
  # Score from the configured Postgres source and keep the latest segments
  custvalue rfm --save

  # Score a CSV export with three bins
  custvalue rfm --customers data/customer_rfm.csv --quantiles 3

  # Fix the reference date used for recency
  custvalue rfm --reference-date 2018-09-01 --format xlsx`,
	RunE: runRFM,
}

func init() {
	f := rfmCmd.Flags()
	f.Int("quantiles", 0, "number of quantile bins, 3-10 (overrides config)")
	f.Int("partitions", 0, "concurrent scoring partitions (overrides config)")
	f.String("reference-date", "", "reference date for recency, YYYY-MM-DD (default: latest purchase)")
	f.Bool("save", false, "upsert segments into Postgres (requires the postgres driver)")
	f.String("table", "", "table for --save (overrides config)")

	rootCmd.AddCommand(rfmCmd)
}

func applyRFMOverrides(cmd *cobra.Command, c *config.RFMConfig) {
	if v, ok := changedInt(cmd, "quantiles"); ok {
		c.NQuantiles = v
	}
	if v, ok := changedInt(cmd, "partitions"); ok {
		c.Partitions = v
	}
	if v, ok := changedString(cmd, "reference-date"); ok {
		c.ReferenceDate = v
	}
}

func runRFM(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signalContext(cmd)
	defer stop()

	applyRFMOverrides(cmd, &cfg.RFM)
	if v, ok := changedString(cmd, "table"); ok {
		cfg.Export.Table = v
	}
	if err := cfg.Validate("rfm"); err != nil {
		return err
	}
	save, _ := cmd.Flags().GetBool("save")
	if save && cfg.Source.Driver != config.DriverPostgres {
		return eris.New("rfm: --save requires source.driver=postgres")
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("command", "rfm"), zap.String("run_id", runID))
	out := cmd.OutOrStdout()

	var (
		rows  int
		paths []string
	)
	run := startRun(ctx, "rfm", runID, runParams(cmd))
	defer func() { run.finish(ctx, rows, paths, err) }()

	ref, err := config.ParseDate(cfg.RFM.ReferenceDate)
	if err != nil {
		return err
	}

	src, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck

	set, err := src.CustomerRFM(ctx, ref)
	if err != nil {
		return eris.Wrap(err, "rfm: load customers")
	}

	checks := quality.CheckCustomers(set.Customers)
	if !checks.OK() {
		printQualityReport(out, checks)
		return eris.Errorf("rfm: input failed %d of %d quality checks", checks.Failed+checks.Errors, checks.Total)
	}
	for _, w := range checks.Warnings() {
		printer.Fprintf(out, "Warning: %s (%.0f rows)\n", w.Name, *w.Actual)
	}

	log.Info("starting RFM analysis",
		zap.Int("customers", len(set.Customers)),
		zap.Int("n_quantiles", cfg.RFM.NQuantiles),
		zap.Time("reference_date", set.ReferenceDate),
	)

	result, err := rfm.Analyze(ctx, set.Customers, rfm.OptionsFromConfig(cfg.RFM))
	if err != nil {
		return eris.Wrap(err, "rfm: analyze")
	}
	recs := rfm.Recommend(result.Summary)
	rows = len(result.Records)

	printDegraded(out, result.Warnings)
	printSegmentSummary(out, result.Summary)
	printRecommendations(out, recs)

	exporter, err := export.NewExporter(cfg.Export.Dir, cfg.Export.Format, runID)
	if err != nil {
		return err
	}
	paths, err = exporter.Write("rfm",
		export.Segments(result.Records),
		export.SegmentSummary(result.Summary),
		export.Recommendations(recs),
		export.QualityReport("rfm_input_checks", checks),
	)
	if err != nil {
		return err
	}
	for _, p := range paths {
		printer.Fprintf(out, "Wrote %s\n", p)
	}

	if save {
		pg, ok := src.(*source.PostgresSource)
		if !ok {
			return eris.New("rfm: --save requires source.driver=postgres")
		}
		res, err := export.SaveSegments(ctx, pg.Pool(), cfg.Export.Table, runID, result.Records, set.ReferenceDate)
		if err != nil {
			return eris.Wrap(err, "rfm: save")
		}
		printer.Fprintf(out, "Saved %d segments to %s\n", res.Upserted, cfg.Export.Table)
	}

	log.Info("RFM analysis complete",
		zap.Int("customers", len(result.Records)),
		zap.Int("segments", len(result.Summary)),
		zap.Duration("elapsed", result.Elapsed),
	)
	return nil
}
