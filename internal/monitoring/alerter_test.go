package monitoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portops/triage-cli/internal/config"
)

func healthySnapshot() *MetricsSnapshot {
	return &MetricsSnapshot{
		IncidentsTotal:  20,
		FallbackCount:   2,
		FallbackRate:    0.1,
		TrainingCorpus:  5,
		KnowledgeCorpus: 3,
		LookbackHours:   24,
		CollectedAt:     time.Now().UTC(),
	}
}

func TestEvaluate_Healthy(t *testing.T) {
	alerter := NewAlerter(config.MonitoringConfig{
		FallbackRateThreshold: 0.5,
		MinIncidents:          10,
	})

	alerts := alerter.Evaluate(healthySnapshot())
	assert.Empty(t, alerts)
}

func TestEvaluate_FallbackRateAlert(t *testing.T) {
	alerter := NewAlerter(config.MonitoringConfig{
		FallbackRateThreshold: 0.5,
		MinIncidents:          10,
	})

	snap := healthySnapshot()
	snap.FallbackCount = 13
	snap.FallbackRate = 0.65

	alerts := alerter.Evaluate(snap)
	require.Len(t, alerts, 1)

	alert := alerts[0]
	assert.Equal(t, AlertFallbackRate, alert.Type)
	assert.Equal(t, "high", alert.Severity)
	assert.Contains(t, alert.Message, "65.0%")
	assert.Contains(t, alert.Message, "50.0%")
	assert.Contains(t, alert.Message, "13 of 20 incidents in last 24h")
	assert.Equal(t, 13, alert.Details["fallback_count"])
	assert.Equal(t, 20, alert.Details["incidents"])
	assert.False(t, alert.Timestamp.IsZero())
}

func TestEvaluate_FallbackThresholds(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.MonitoringConfig
		total     int
		rate      float64
		wantAlert bool
	}{
		{
			name:      "above threshold",
			cfg:       config.MonitoringConfig{FallbackRateThreshold: 0.5, MinIncidents: 10},
			total:     20,
			rate:      0.6,
			wantAlert: true,
		},
		{
			name:      "exactly at threshold",
			cfg:       config.MonitoringConfig{FallbackRateThreshold: 0.5, MinIncidents: 10},
			total:     20,
			rate:      0.5,
			wantAlert: false,
		},
		{
			name:      "below min incidents",
			cfg:       config.MonitoringConfig{FallbackRateThreshold: 0.5, MinIncidents: 10},
			total:     4,
			rate:      1.0,
			wantAlert: false,
		},
		{
			name:      "defaults applied when config is zero",
			cfg:       config.MonitoringConfig{},
			total:     12,
			rate:      0.6,
			wantAlert: true,
		},
		{
			name:      "default min incidents suppresses small samples",
			cfg:       config.MonitoringConfig{},
			total:     8,
			rate:      1.0,
			wantAlert: false,
		},
		{
			name:      "custom threshold",
			cfg:       config.MonitoringConfig{FallbackRateThreshold: 0.9, MinIncidents: 5},
			total:     20,
			rate:      0.8,
			wantAlert: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := healthySnapshot()
			snap.IncidentsTotal = tt.total
			snap.FallbackRate = tt.rate
			snap.FallbackCount = int(tt.rate * float64(tt.total))

			alerts := NewAlerter(tt.cfg).Evaluate(snap)
			if tt.wantAlert {
				require.Len(t, alerts, 1)
				assert.Equal(t, AlertFallbackRate, alerts[0].Type)
			} else {
				assert.Empty(t, alerts)
			}
		})
	}
}

func TestEvaluate_CorpusEmpty(t *testing.T) {
	alerter := NewAlerter(config.MonitoringConfig{
		FallbackRateThreshold: 0.5,
		MinIncidents:          10,
	})

	snap := healthySnapshot()
	snap.TrainingCorpus = 0
	snap.KnowledgeCorpus = 0

	alerts := alerter.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertCorpusEmpty, alerts[0].Type)
	assert.Equal(t, "medium", alerts[0].Severity)
}

func TestEvaluate_PartialCorpusIsFine(t *testing.T) {
	alerter := NewAlerter(config.MonitoringConfig{
		FallbackRateThreshold: 0.5,
		MinIncidents:          10,
	})

	snap := healthySnapshot()
	snap.TrainingCorpus = 0
	snap.KnowledgeCorpus = 1

	assert.Empty(t, alerter.Evaluate(snap))
}

func TestEvaluate_MultipleAlerts(t *testing.T) {
	alerter := NewAlerter(config.MonitoringConfig{
		FallbackRateThreshold: 0.5,
		MinIncidents:          10,
	})

	snap := healthySnapshot()
	snap.FallbackCount = 18
	snap.FallbackRate = 0.9
	snap.TrainingCorpus = 0
	snap.KnowledgeCorpus = 0

	alerts := alerter.Evaluate(snap)
	require.Len(t, alerts, 2)
	assert.Equal(t, AlertFallbackRate, alerts[0].Type)
	assert.Equal(t, AlertCorpusEmpty, alerts[1].Type)
}

func TestLogAlerts_ReturnsCount(t *testing.T) {
	alerter := NewAlerter(config.MonitoringConfig{})

	assert.Equal(t, 0, alerter.LogAlerts(nil))
	assert.Equal(t, 2, alerter.LogAlerts([]Alert{
		{Type: AlertFallbackRate, Severity: "high", Message: "rate"},
		{Type: AlertCorpusEmpty, Severity: "medium", Message: "corpus"},
	}))
}
