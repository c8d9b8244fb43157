package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/custvalue-cli/internal/config"
	"github.com/sells-group/custvalue-cli/internal/model"
	"github.com/sells-group/custvalue-cli/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFailureRate   AlertType = "failure_rate"
	AlertStaleRuns     AlertType = "stale_runs"
	AlertCommandFailed AlertType = "command_failed"
)

// minFinishedRuns is the sample size below which the failure rate is ignored.
const minFinishedRuns = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and posts alerts to a webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
	retry  resilience.RetryConfig
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitorConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			MaxBackoff:     5 * time.Second,
		},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	finished := snap.Complete + snap.Failed
	if finished >= minFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.Failed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.Failed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.Stale > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertStaleRuns,
			Severity: "medium",
			Message: fmt.Sprintf("%d run(s) still running after %d minutes",
				snap.Stale, a.cfg.StaleRunMinutes),
			Details:   map[string]any{"stale": snap.Stale, "running": snap.Running},
			Timestamp: now,
		})
	}

	for _, h := range snap.Commands {
		if h.LastStatus != model.RunStatusFailed {
			continue
		}
		alerts = append(alerts, Alert{
			Type:     AlertCommandFailed,
			Severity: "medium",
			Message:  fmt.Sprintf("Latest %s run failed: %s", h.Command, h.LastError),
			Details: map[string]any{
				"command":     h.Command,
				"last_run_at": h.LastRunAt,
				"failed":      h.Failed,
				"total":       h.Total,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// Notification is the webhook body: every alert from one check.
type Notification struct {
	Service       string    `json:"service"`
	LookbackHours int       `json:"lookback_hours"`
	Alerts        []Alert   `json:"alerts"`
	SentAt        time.Time `json:"sent_at"`
}

// Notify posts all alerts to the configured webhook in a single request.
// Server errors and network failures are retried. It is a no-op without a
// webhook URL or alerts.
func (a *Alerter) Notify(ctx context.Context, lookbackHours int, alerts []Alert) error {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return nil
	}

	payload, err := json.Marshal(Notification{
		Service:       "custvalue",
		LookbackHours: lookbackHours,
		Alerts:        alerts,
		SentAt:        time.Now().UTC(),
	})
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal notification")
	}

	retry := a.retry
	retry.OnRetry = resilience.RetryLogger("webhook", "notify")
	err = resilience.Do(ctx, retry, func(ctx context.Context) error {
		return a.post(ctx, payload)
	})
	if err != nil {
		return err
	}
	zap.L().Info("monitoring: alerts sent", zap.Int("alerts", len(alerts)))
	return nil
}

func (a *Alerter) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return resilience.NewTransientError(eris.Wrap(err, "monitoring: webhook request"))
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return resilience.NewTransientError(eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
