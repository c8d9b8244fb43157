package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/monitoring"
	"github.com/sells-group/custvalue-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect analysis run history",
	Long:  "Commands for listing, viewing, and summarizing rfm, ltv, cohort and validate runs.",
}

// openRunStore opens and migrates the configured run ledger.
func openRunStore(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		command, _ := cmd.Flags().GetString("command")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(cmd.Context(), store.RunFilter{
			Command: command,
			Status:  model.RunStatus(status),
			Limit:   limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics per command",
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openRunStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		filter := store.RunFilter{Limit: 10000}
		if since > 0 {
			filter.CreatedAfter = time.Now().Add(-since)
		}

		runs, err := st.ListRuns(cmd.Context(), filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(cmd.OutOrStdout(), computeRunStats(runs))
		return nil
	},
}

// -- runs health --

var runsHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check recent runs for failures and stalls",
	Long: `Summarizes runs inside the monitor lookback window per command and raises
alerts when the failure rate crosses monitor.failure_rate_threshold, when runs
stay in the running state past monitor.stale_run_minutes, or when the latest
run of a command failed. Alerts are posted to monitor.webhook_url when set.

With --watch the check repeats every monitor.check_interval_secs until
interrupted.`,
	RunE: runHealth,
}

func runHealth(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	if v, ok := changedInt(cmd, "lookback"); ok {
		cfg.Monitor.LookbackWindowHours = v
	}
	st, err := openRunStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	out := cmd.OutOrStdout()
	collector := monitoring.NewCollector(st, time.Duration(cfg.Monitor.StaleRunMinutes)*time.Minute)
	checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitor),
		time.Duration(cfg.Monitor.CheckIntervalSecs)*time.Second, cfg.Monitor.LookbackWindowHours)
	checker.OnAlerts = func(alerts []monitoring.Alert) { printAlerts(out, alerts) }

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		checker.Run(ctx)
		return nil
	}

	snap, err := collector.Collect(ctx, cfg.Monitor.LookbackWindowHours)
	if err != nil {
		return err
	}
	printHealth(out, snap)
	if alerts := checker.Check(ctx); len(alerts) == 0 {
		fmt.Fprintln(out, "No alerts.")
	}
	return nil
}

func init() {
	runsHealthCmd.Flags().Int("lookback", 0, "lookback window in hours (overrides config)")
	runsHealthCmd.Flags().Bool("watch", false, "repeat the check until interrupted")
	runsCmd.AddCommand(runsHealthCmd)
}

func init() {
	runsListCmd.Flags().String("command", "", "filter by command (rfm, ltv, cohort, validate)")
	runsListCmd.Flags().String("status", "", "filter by run status (running, complete, failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 7*24*time.Hour, "time window for stats (e.g. 24h, 168h); 0 for all")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// commandStats aggregates the runs of one command.
type commandStats struct {
	Command    string
	Total      int
	Complete   int
	Failed     int
	Running    int
	Rows       int
	AvgDurSecs float64
}

// computeRunStats groups runs by command, sorted by command name.
func computeRunStats(runs []model.Run) []commandStats {
	byCmd := map[string]*commandStats{}
	durations := map[string]time.Duration{}

	for _, r := range runs {
		s, ok := byCmd[r.Command]
		if !ok {
			s = &commandStats{Command: r.Command}
			byCmd[r.Command] = s
		}
		s.Total++
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
			durations[r.Command] += r.Duration()
			if r.Result != nil {
				s.Rows += r.Result.Rows
			}
		case model.RunStatusFailed:
			s.Failed++
		default:
			s.Running++
		}
	}

	out := make([]commandStats, 0, len(byCmd))
	for name, s := range byCmd {
		if s.Complete > 0 {
			s.AvgDurSecs = durations[name].Seconds() / float64(s.Complete)
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMMAND\tSTATUS\tROWS\tCREATED\tDURATION\tERROR")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t----\t-------\t--------\t-----")

	for _, r := range runs {
		rows, errMsg := "", ""
		if r.Result != nil {
			rows = fmt.Sprint(r.Result.Rows)
			errMsg = truncate(strings.ReplaceAll(r.Result.Error, "\n", " "), 40)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Command,
			r.Status,
			rows,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Duration().Round(time.Millisecond),
			errMsg,
		)
	}
	_ = w.Flush()
}

// formatRunStats writes per-command aggregates to w.
func formatRunStats(out io.Writer, stats []commandStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMMAND\tTOTAL\tCOMPLETE\tFAILED\tRUNNING\tROWS\tAVG_DURATION")
	var total commandStats
	for _, s := range stats {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.1fs\n",
			s.Command, s.Total, s.Complete, s.Failed, s.Running, s.Rows, s.AvgDurSecs)
		total.Total += s.Total
		total.Failed += s.Failed
	}
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", total.Total)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", total.Failed)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// printHealth writes a per-command health table for snap.
func printHealth(out io.Writer, snap *monitoring.MetricsSnapshot) {
	fmt.Fprintf(out, "Runs in last %dh: %d (%d complete, %d failed, %d running, %d stale)\n",
		snap.LookbackHours, snap.Total, snap.Complete, snap.Failed, snap.Running, snap.Stale)
	if len(snap.Commands) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMMAND\tTOTAL\tFAILED\tLAST_STATUS\tLAST_RUN")
	for _, h := range snap.Commands {
		last := ""
		if !h.LastRunAt.IsZero() {
			last = h.LastRunAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", h.Command, h.Total, h.Failed, h.LastStatus, last)
	}
	_ = w.Flush()
}

func printAlerts(out io.Writer, alerts []monitoring.Alert) {
	for _, a := range alerts {
		fmt.Fprintf(out, "[%s] %s: %s\n", strings.ToUpper(a.Severity), a.Type, a.Message)
	}
}
