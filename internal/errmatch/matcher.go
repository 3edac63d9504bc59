package errmatch

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/store"
)

const (
	defaultKnowledgeLimit = 5
	defaultIncidentLimit  = 5

	// incidentScanLimit bounds how far back the incident lookup reads.
	incidentScanLimit = 200
)

// Source provides the corpus slices the matcher searches. Both store
// drivers satisfy it.
type Source interface {
	KnowledgeEntries(ctx context.Context) ([]model.KnowledgeEntry, error)
	ListIncidents(ctx context.Context, filter store.IncidentFilter) ([]model.Incident, error)
}

// Match is the known-error context for one description: the extracted
// codes plus the knowledge entries and past incidents recorded against
// them.
type Match struct {
	Codes     []string               `json:"codes"`
	Knowledge []model.KnowledgeEntry `json:"knowledge"`
	Incidents []model.Incident       `json:"incidents"`
}

// Matcher looks up extracted codes against knowledge titles and
// keywords and against past incident descriptions.
type Matcher struct {
	source         Source
	knowledgeLimit int
	incidentLimit  int
}

// NewMatcher creates a Matcher over the given corpus source.
func NewMatcher(source Source) *Matcher {
	return &Matcher{
		source:         source,
		knowledgeLimit: defaultKnowledgeLimit,
		incidentLimit:  defaultIncidentLimit,
	}
}

// Match extracts codes from the description and collects known-error
// context for them. The Codes field is always populated; the lookup
// halves are empty when nothing matches.
func (m *Matcher) Match(ctx context.Context, description string) (*Match, error) {
	codes := ExtractCodes(description)
	result := &Match{Codes: codes}

	entries, err := m.source.KnowledgeEntries(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "errmatch: load knowledge entries")
	}
	result.Knowledge = matchKnowledge(entries, codes, m.knowledgeLimit)

	incidents, err := m.source.ListIncidents(ctx, store.IncidentFilter{Limit: incidentScanLimit})
	if err != nil {
		return nil, eris.Wrap(err, "errmatch: list incidents")
	}
	result.Incidents = matchIncidents(incidents, codes, m.incidentLimit)

	return result, nil
}

// EnrichKnowledge is the analyzer enrichment hook: knowledge entries
// matching extracted codes join the analysis context without affecting
// relevance ranking. Lookup failures degrade to no enrichment.
func (m *Matcher) EnrichKnowledge(ctx context.Context, description string) []model.KnowledgeEntry {
	codes := ExtractCodes(description)
	entries, err := m.source.KnowledgeEntries(ctx)
	if err != nil {
		zap.L().Warn("errmatch: enrich knowledge", zap.Error(err))
		return nil
	}
	return matchKnowledge(entries, codes, m.knowledgeLimit)
}

func matchKnowledge(entries []model.KnowledgeEntry, codes []string, limit int) []model.KnowledgeEntry {
	var matched []model.KnowledgeEntry
	for _, entry := range entries {
		if len(matched) >= limit {
			break
		}
		haystack := strings.ToUpper(entry.Title + " " + entry.Keywords)
		for _, code := range codes {
			if strings.Contains(haystack, code) {
				matched = append(matched, entry)
				break
			}
		}
	}
	return matched
}

func matchIncidents(incidents []model.Incident, codes []string, limit int) []model.Incident {
	var matched []model.Incident
	for _, incident := range incidents {
		if len(matched) >= limit {
			break
		}
		haystack := strings.ToUpper(incident.Description)
		for _, code := range codes {
			if strings.Contains(haystack, code) {
				matched = append(matched, incident)
				break
			}
		}
	}
	return matched
}
