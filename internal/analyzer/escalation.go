package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/llm"
	"github.com/portops/triage-cli/internal/model"
)

// Escalation completion budget.
const (
	escalationMaxTokens   = 500
	escalationTemperature = 0.3
)

const escalationPromptFormat = `Create a non-technical escalation summary for management based on this incident:

Incident Details:
%s

Technical Analysis:
%s

Generate a JSON response with:
{
    "executive_summary": "Brief business impact summary (2-3 sentences)",
    "business_impact": "Specific business impact and affected operations",
    "urgency_justification": "Why this needs immediate attention",
    "resource_requirements": ["Teams or resources needed to resolve this"],
    "estimated_resolution_time": "Estimated time to resolve",
    "stakeholder_notification": ["Stakeholders to notify"],
    "escalation_level": "Level 1/Level 2/Level 3"
}

Focus on business impact, not technical details. Use language suitable for C-level executives.`

// Escalation levels the briefing accepts from the model.
var escalationLevels = map[string]bool{
	"Level 1": true,
	"Level 2": true,
	"Level 3": true,
}

// GenerateEscalationSummary produces the management-facing briefing for
// an incident. It never fails: without a usable model response the
// summary degrades to deterministic boilerplate derived from the
// analysis.
func (a *Analyzer) GenerateEscalationSummary(ctx context.Context, incident model.Incident) model.EscalationSummary {
	if a.client == nil || !a.client.Configured() {
		return defaultEscalationSummary(incident)
	}

	raw, err := a.client.Complete(ctx, llm.Request{
		System:      analysisSystemPrompt,
		Prompt:      fmt.Sprintf(escalationPromptFormat, incidentDetailsJSON(incident), analysisJSON(incident.Analysis)),
		MaxTokens:   escalationMaxTokens,
		Temperature: escalationTemperature,
		Operation:   "escalation",
	})
	if err != nil {
		zap.L().Warn("analyzer: escalation completion failed, using default summary", zap.Error(err))
		return defaultEscalationSummary(incident)
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		return defaultEscalationSummary(incident)
	}
	var summary model.EscalationSummary
	if err := json.Unmarshal([]byte(obj), &summary); err != nil {
		zap.L().Warn("analyzer: unparseable escalation summary, using default", zap.Error(err))
		return defaultEscalationSummary(incident)
	}

	fillEscalationDefaults(&summary, incident)
	return summary
}

// incidentDetailsJSON renders the incident facts the briefing prompt
// embeds. The analysis travels in its own section.
func incidentDetailsJSON(incident model.Incident) string {
	details := struct {
		Reference   string               `json:"reference,omitempty"`
		Description string               `json:"description"`
		Source      model.IncidentSource `json:"source,omitempty"`
		Status      model.IncidentStatus `json:"status,omitempty"`
		CreatedAt   string               `json:"created_at,omitempty"`
	}{
		Reference:   incident.Reference,
		Description: incident.Description,
		Source:      incident.Source,
		Status:      incident.Status,
	}
	if !incident.CreatedAt.IsZero() {
		details.CreatedAt = incident.CreatedAt.UTC().Format(time.RFC3339)
	}

	b, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func analysisJSON(analysis model.Analysis) string {
	b, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// fillEscalationDefaults replaces empty briefing fields with the
// deterministic defaults so the summary is always fully populated.
func fillEscalationDefaults(s *model.EscalationSummary, incident model.Incident) {
	def := defaultEscalationSummary(incident)

	if strings.TrimSpace(s.ExecutiveSummary) == "" {
		s.ExecutiveSummary = def.ExecutiveSummary
	}
	if strings.TrimSpace(s.BusinessImpact) == "" {
		s.BusinessImpact = def.BusinessImpact
	}
	if strings.TrimSpace(s.UrgencyJustification) == "" {
		s.UrgencyJustification = def.UrgencyJustification
	}
	if len(s.ResourceRequirements) == 0 {
		s.ResourceRequirements = def.ResourceRequirements
	}
	if strings.TrimSpace(s.EstimatedResolutionTime) == "" {
		s.EstimatedResolutionTime = def.EstimatedResolutionTime
	}
	if len(s.StakeholderNotification) == 0 {
		s.StakeholderNotification = def.StakeholderNotification
	}
	s.EscalationLevel = strings.TrimSpace(s.EscalationLevel)
	if !escalationLevels[s.EscalationLevel] {
		s.EscalationLevel = def.EscalationLevel
	}
}

// defaultEscalationSummary is the deterministic briefing used when the
// model cannot provide one.
func defaultEscalationSummary(incident model.Incident) model.EscalationSummary {
	incidentType := incident.Analysis.IncidentType
	if incidentType == "" {
		incidentType = defaultIncidentType
	}
	urgency := incident.Analysis.Urgency
	if urgency == "" {
		urgency = model.UrgencyMedium
	}

	return model.EscalationSummary{
		ExecutiveSummary: fmt.Sprintf("%s incident reported with %s urgency. The technical team is assessing scope and working to restore normal operations.",
			incidentType, strings.ToLower(string(urgency))),
		BusinessImpact:          "Potential disruption to port operations",
		UrgencyJustification:    "System reliability concern",
		ResourceRequirements:    []string{"Technical team assessment"},
		EstimatedResolutionTime: "2-4 hours",
		StakeholderNotification: []string{"Operations Manager", "IT Manager"},
		EscalationLevel:         model.EscalationLevelFor(urgency),
	}
}
