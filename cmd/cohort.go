package main

import (
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/cohort"
	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/export"
	"github.com/sells-group/custvalue-cli/internal/source"
)

var cohortCmd = &cobra.Command{
	Use:   "cohort",
	Short: "Build monthly cohort retention and churn matrices",
	Long: `Assigns each customer to the month of their first delivered purchase and
measures, for every following month, the share of the cohort that bought
again. Produces retention and churn matrices and per-cohort value metrics.

Examples:
  custvalue cohort
  custvalue cohort --orders data/orders.csv --max-months 6
  custvalue cohort --start 2017-01-01 --end 2017-12-31 --format xlsx`,
	RunE: runCohort,
}

func init() {
	f := cohortCmd.Flags()
	f.Int("max-months", 0, "last period column (overrides config)")
	f.String("start", "", "first cohort purchase date, YYYY-MM-DD (overrides config)")
	f.String("end", "", "last cohort purchase date, YYYY-MM-DD (overrides config)")

	rootCmd.AddCommand(cohortCmd)
}

func applyCohortOverrides(cmd *cobra.Command, c *config.CohortConfig) {
	if v, ok := changedInt(cmd, "max-months"); ok {
		c.MaxMonths = v
	}
	if v, ok := changedString(cmd, "start"); ok {
		c.StartDate = v
	}
	if v, ok := changedString(cmd, "end"); ok {
		c.EndDate = v
	}
}

func runCohort(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signalContext(cmd)
	defer stop()

	applyCohortOverrides(cmd, &cfg.Cohort)
	if err := cfg.Validate("cohort"); err != nil {
		return err
	}
	start, err := config.ParseDate(cfg.Cohort.StartDate)
	if err != nil {
		return err
	}
	end, err := config.ParseDate(cfg.Cohort.EndDate)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("command", "cohort"), zap.String("run_id", runID))
	out := cmd.OutOrStdout()

	var (
		rows  int
		paths []string
	)
	run := startRun(ctx, "cohort", runID, runParams(cmd))
	defer func() { run.finish(ctx, rows, paths, err) }()

	src, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck

	orders, err := src.Orders(ctx, source.OrderFilter{Since: start})
	if err != nil {
		return eris.Wrap(err, "cohort: load orders")
	}

	events := cohort.Events(orders, cohort.Window{Start: start, End: end})
	rows = len(events)
	if len(events) == 0 {
		return eris.New("cohort: no purchases inside the cohort window")
	}
	retention := cohort.Retention(events, cfg.Cohort.MaxMonths)
	churn := cohort.Churn(retention)
	metrics := cohort.Metrics(events, &retention)

	printRetention(out, retention, 7)

	exporter, err := export.NewExporter(cfg.Export.Dir, cfg.Export.Format, runID)
	if err != nil {
		return err
	}
	paths, err = exporter.Write("cohort",
		export.Matrix("cohort_retention", retention),
		export.Matrix("cohort_churn", churn),
		export.CohortSummary(metrics),
	)
	if err != nil {
		return err
	}
	for _, p := range paths {
		printer.Fprintf(out, "Wrote %s\n", p)
	}

	log.Info("cohort analysis complete",
		zap.Int("events", len(events)),
		zap.Int("cohorts", len(retention.Cohorts)),
		zap.Int("periods", retention.Periods()),
	)
	return nil
}
