//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/portops/triage-cli/internal/config"
	"github.com/portops/triage-cli/internal/monitoring"
)

func TestFormatStatus_Healthy(t *testing.T) {
	conf := &config.Config{
		Store:     config.StoreConfig{Driver: "sqlite"},
		Model:     config.ModelConfig{Provider: "azure"},
		Ticketing: config.TicketingConfig{Backend: "jira"},
	}
	snap := &monitoring.MetricsSnapshot{
		IncidentsTotal:    12,
		IncidentsBySource: map[string]int{"api": 8, "watch": 4},
		UrgencyCounts:     map[string]int{"High": 5, "Medium": 7},
		FallbackCount:     3,
		FallbackRate:      0.25,
		TicketsCreated:    2,
		TrainingCorpus:    40,
		KnowledgeCorpus:   15,
		KnowledgeUsed:     6,
		LookbackHours:     24,
		CollectedAt:       time.Now().UTC(),
	}

	var buf bytes.Buffer
	formatStatus(&buf, conf, snap, nil)

	out := buf.String()
	assert.Contains(t, out, "store: sqlite  provider: azure  ticketing: jira")
	assert.Contains(t, out, "notion publishing: off")
	assert.Contains(t, out, "incidents (last 24h)")
	assert.Contains(t, out, "from api")
	assert.Contains(t, out, "from watch")
	assert.Contains(t, out, "urgency High")
	assert.Contains(t, out, "25.0% (3)")
	assert.Contains(t, out, "no active alerts")
}

func TestFormatStatus_WithAlerts(t *testing.T) {
	conf := &config.Config{
		Store:  config.StoreConfig{Driver: "postgres"},
		Model:  config.ModelConfig{Provider: "anthropic"},
		Notion: config.NotionConfig{Token: "secret", IncidentDB: "db-id"},
	}
	snap := &monitoring.MetricsSnapshot{LookbackHours: 24}
	alerts := []monitoring.Alert{
		{
			Type:     monitoring.AlertCorpusEmpty,
			Severity: "medium",
			Message:  "training and knowledge corpus are both empty",
		},
	}

	var buf bytes.Buffer
	formatStatus(&buf, conf, snap, alerts)

	out := buf.String()
	assert.Contains(t, out, "notion publishing: on")
	assert.Contains(t, out, "alerts:")
	assert.Contains(t, out, "[medium] corpus_empty: training and knowledge corpus are both empty")
	assert.NotContains(t, out, "no active alerts")
}
