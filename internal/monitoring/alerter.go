package monitoring

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertFallbackRate AlertType = "fallback_rate"
	AlertCorpusEmpty  AlertType = "corpus_empty"
)

// Alert represents a single threshold breach.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds.
type Alerter struct {
	cfg config.MonitoringConfig
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{cfg: cfg}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	threshold := a.cfg.FallbackRateThreshold
	if threshold <= 0 {
		threshold = 0.5
	}
	minIncidents := a.cfg.MinIncidents
	if minIncidents <= 0 {
		minIncidents = 10
	}

	// A high fallback rate means the model provider is failing and
	// operators are getting rule-based answers.
	if snap.IncidentsTotal >= minIncidents && snap.FallbackRate > threshold {
		alerts = append(alerts, Alert{
			Type:     AlertFallbackRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Fallback analysis rate %.1f%% exceeds threshold %.1f%% (%d of %d incidents in last %dh)",
				snap.FallbackRate*100, threshold*100,
				snap.FallbackCount, snap.IncidentsTotal, snap.LookbackHours,
			),
			Details: map[string]any{
				"fallback_rate":  snap.FallbackRate,
				"threshold":      threshold,
				"fallback_count": snap.FallbackCount,
				"incidents":      snap.IncidentsTotal,
			},
			Timestamp: now,
		})
	}

	// An empty corpus means every analysis runs without context.
	if snap.TrainingCorpus == 0 && snap.KnowledgeCorpus == 0 {
		alerts = append(alerts, Alert{
			Type:      AlertCorpusEmpty,
			Severity:  "medium",
			Message:   "Triage corpus is empty; analyses receive no training or knowledge context",
			Timestamp: now,
		})
	}

	return alerts
}

// LogAlerts writes alerts to the process log at warn level and returns
// how many were emitted.
func (a *Alerter) LogAlerts(alerts []Alert) int {
	for _, alert := range alerts {
		zap.L().Warn("monitoring: alert",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
			zap.String("message", alert.Message),
		)
	}
	return len(alerts)
}
