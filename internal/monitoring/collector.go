package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/portops/triage-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of triage health.
type MetricsSnapshot struct {
	// Incident metrics (within lookback window).
	IncidentsTotal    int            `json:"incidents_total"`
	IncidentsBySource map[string]int `json:"incidents_by_source"`
	UrgencyCounts     map[string]int `json:"urgency_counts"`
	FallbackCount     int            `json:"fallback_count"`
	FallbackRate      float64        `json:"fallback_rate"`
	TicketsCreated    int            `json:"tickets_created"`

	// Corpus metrics. KnowledgeUsed counts entries selected into an
	// analysis context within the window; the corpus sizes are current
	// totals, not windowed.
	KnowledgeUsed   int `json:"knowledge_used"`
	TrainingCorpus  int `json:"training_corpus"`
	KnowledgeCorpus int `json:"knowledge_corpus"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of triage metrics over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		IncidentsBySource: map[string]int{},
		UrgencyCounts:     map[string]int{},
		LookbackHours:     lookbackHours,
		CollectedAt:       time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	incidents, err := c.store.ListIncidents(ctx, store.IncidentFilter{
		Since: cutoff,
		Limit: 10000,
	})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list incidents")
	}

	snap.IncidentsTotal = len(incidents)
	for _, incident := range incidents {
		snap.IncidentsBySource[string(incident.Source)]++
		snap.UrgencyCounts[string(incident.Analysis.Urgency)]++
		if incident.Analysis.Fallback {
			snap.FallbackCount++
		}
		if incident.TicketKey != "" {
			snap.TicketsCreated++
		}
	}
	if snap.IncidentsTotal > 0 {
		snap.FallbackRate = float64(snap.FallbackCount) / float64(snap.IncidentsTotal)
	}

	used, err := c.store.CountKnowledgeUsedSince(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count knowledge usage")
	}
	snap.KnowledgeUsed = used

	training, err := c.store.CountTraining(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count training")
	}
	snap.TrainingCorpus = training

	knowledge, err := c.store.CountKnowledge(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: count knowledge")
	}
	snap.KnowledgeCorpus = knowledge

	return snap, nil
}
