package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/export"
	"github.com/sells-group/custvalue-cli/internal/ltv"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/source"
)

var ltvCmd = &cobra.Command{
	Use:   "ltv",
	Short: "Compute historical and projected customer lifetime value",
	Long: `Aggregates delivered order payments per customer into historical lifetime
value, projects value over a horizon from each customer's purchase rate,
rolls value up by state or city and by first-purchase cohort, tiers the top
customers as VIPs and reports revenue concentration.

Examples:
  custvalue ltv
  custvalue ltv --orders data/orders.csv --horizon 180 --vip-top 5
  custvalue ltv --segment-by customer_city --as-of 2018-08-31`,
	RunE: runLTV,
}

func init() {
	f := ltvCmd.Flags()
	f.Int("horizon", 0, "projection horizon in days (overrides config)")
	f.Int("min-lifetime", 0, "minimum lifetime in days for a projection (overrides config)")
	f.Float64("vip-top", 0, "VIP band as a top percentage of customers (overrides config)")
	f.String("segment-by", "", "grouping column: customer_state or customer_city (overrides config)")
	f.String("as-of", "", "date recency is measured to, YYYY-MM-DD (default: latest purchase)")

	rootCmd.AddCommand(ltvCmd)
}

func applyLTVOverrides(cmd *cobra.Command, c *config.LTVConfig) {
	if v, ok := changedInt(cmd, "horizon"); ok {
		c.HorizonDays = v
	}
	if v, ok := changedInt(cmd, "min-lifetime"); ok {
		c.MinLifetimeDays = v
	}
	if v, ok := changedFloat(cmd, "vip-top"); ok {
		c.VIPTopPct = v
	}
	if v, ok := changedString(cmd, "segment-by"); ok {
		c.SegmentBy = v
	}
}

// latestPurchase returns the most recent purchase time in orders.
func latestPurchase(orders []model.Order) time.Time {
	var latest time.Time
	for _, o := range orders {
		if o.PurchasedAt.After(latest) {
			latest = o.PurchasedAt
		}
	}
	return latest
}

func runLTV(cmd *cobra.Command, _ []string) (err error) {
	ctx, stop := signalContext(cmd)
	defer stop()

	applyLTVOverrides(cmd, &cfg.LTV)
	if err := cfg.Validate("ltv"); err != nil {
		return err
	}
	key, err := ltv.ParseGroupKey(cfg.LTV.SegmentBy)
	if err != nil {
		return err
	}
	asOfFlag, _ := cmd.Flags().GetString("as-of")
	asOfDate, err := config.ParseDate(asOfFlag)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := zap.L().With(zap.String("command", "ltv"), zap.String("run_id", runID))
	out := cmd.OutOrStdout()

	var (
		rows  int
		paths []string
	)
	run := startRun(ctx, "ltv", runID, runParams(cmd))
	defer func() { run.finish(ctx, rows, paths, err) }()

	src, err := source.Open(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close() //nolint:errcheck

	var filter source.OrderFilter
	if asOfDate != nil {
		endOfDay := asOfDate.AddDate(0, 0, 1).Add(-time.Microsecond)
		filter.Until = &endOfDay
	}
	orders, err := src.Orders(ctx, filter)
	if err != nil {
		return eris.Wrap(err, "ltv: load orders")
	}
	if len(orders) == 0 {
		return eris.New("ltv: no delivered orders found")
	}

	asOf := latestPurchase(orders)
	if asOfDate != nil {
		asOf = *asOfDate
	}

	hist := ltv.Historical(orders, asOf)
	rows = len(hist)
	preds := ltv.Predict(hist, cfg.LTV.HorizonDays, cfg.LTV.MinLifetimeDays)
	groups := ltv.ByGroup(hist, key)
	cohorts := ltv.ByCohort(hist)
	vips, threshold, err := ltv.VIP(hist, cfg.LTV.VIPTopPct)
	if err != nil {
		return eris.Wrap(err, "ltv: vip")
	}
	_, pareto := ltv.Pareto(hist)

	printLTVSummary(out, hist, pareto, vips, threshold, groups)

	exporter, err := export.NewExporter(cfg.Export.Dir, cfg.Export.Format, runID)
	if err != nil {
		return err
	}
	paths, err = exporter.Write("ltv",
		export.Historical(hist),
		export.Predictions(preds),
		export.Groups(groups, key),
		export.CohortLTV(cohorts),
		export.VIPs(vips),
		export.Pareto(pareto),
	)
	if err != nil {
		return err
	}
	for _, p := range paths {
		printer.Fprintf(out, "Wrote %s\n", p)
	}

	log.Info("LTV analysis complete",
		zap.Int("orders", len(orders)),
		zap.Int("customers", len(hist)),
		zap.Int("predictions", len(preds)),
		zap.Int("vips", len(vips)),
		zap.Time("as_of", asOf),
	)
	return nil
}
