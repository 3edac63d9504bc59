package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/llm"
	"github.com/portops/triage-cli/internal/model"
)

// Resolution completion budget. Lower temperature than analysis: plans
// should be procedural, not creative.
const (
	resolutionMaxTokens   = 1000
	resolutionTemperature = 0.2
)

const resolutionSystemPrompt = "You are an expert maritime operations specialist providing step-by-step resolution guidance for PORTNET® incidents."

const resolutionPromptFormat = `Based on this maritime operations incident analysis, create a detailed step-by-step resolution plan:

INCIDENT: %s

ANALYSIS RESULTS:
- Type: %s
- Root Cause: %s
- Impact: %s
- Urgency: %s
- Affected Systems: %s

Please provide a structured resolution plan in JSON format:
{
    "summary": "Brief summary of the resolution approach",
    "steps": [
        {
            "order": 1,
            "action": "Specific action to take",
            "detail": "What this step establishes or rules out",
            "query": "Specific diagnostic query or command if applicable"
        }
    ]
}

Focus on:
1. Immediate actions to stabilize the situation
2. Investigation steps to confirm root cause
3. Resolution steps to fix the issue
4. Verification steps to ensure resolution
5. Include specific diagnostic queries for PORTNET®, container systems, EDI processing, etc.`

// GenerateResolutionPlan proposes ordered remediation steps for an
// analyzed incident. It never fails: any model or parse problem yields
// the deterministic four-step plan for the incident category.
func (a *Analyzer) GenerateResolutionPlan(ctx context.Context, description string, analysis model.Analysis) model.ResolutionPlan {
	if a.client == nil || !a.client.Configured() {
		return FallbackResolutionPlan(analysis.IncidentType)
	}

	prompt := fmt.Sprintf(resolutionPromptFormat,
		description, analysis.IncidentType, analysis.RootCause, analysis.Impact,
		analysis.Urgency, strings.Join(analysis.AffectedSystems, ", "))

	raw, err := a.client.Complete(ctx, llm.Request{
		System:      resolutionSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   resolutionMaxTokens,
		Temperature: resolutionTemperature,
		Operation:   "resolution",
	})
	if err != nil {
		zap.L().Warn("analyzer: resolution completion failed, using fallback plan", zap.Error(err))
		return FallbackResolutionPlan(analysis.IncidentType)
	}

	plan, err := parseResolutionPlan(raw, analysis.IncidentType)
	if err != nil {
		zap.L().Warn("analyzer: unparseable resolution plan, using fallback", zap.Error(err))
		return FallbackResolutionPlan(analysis.IncidentType)
	}
	return plan
}

// parseResolutionPlan decodes the model's plan JSON. Steps without an
// explicit order are numbered by position.
func parseResolutionPlan(raw, incidentType string) (model.ResolutionPlan, error) {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return model.ResolutionPlan{}, eris.New("analyzer: no JSON object in resolution response")
	}

	var decoded struct {
		Summary string                 `json:"summary"`
		Steps   []model.ResolutionStep `json:"steps"`
	}
	if err := json.Unmarshal([]byte(obj), &decoded); err != nil {
		return model.ResolutionPlan{}, eris.Wrap(err, "analyzer: decode resolution plan")
	}
	if len(decoded.Steps) == 0 {
		return model.ResolutionPlan{}, eris.New("analyzer: resolution plan has no steps")
	}

	for i := range decoded.Steps {
		if decoded.Steps[i].Order == 0 {
			decoded.Steps[i].Order = i + 1
		}
	}

	notes := decoded.Summary
	if notes == "" {
		notes = fmt.Sprintf("AI-generated resolution plan for %s", incidentType)
	}
	return model.ResolutionPlan{Steps: decoded.Steps, Generated: true, Notes: notes}, nil
}

// FallbackResolutionPlan is the deterministic plan used when no model
// plan is available. The steps follow the standard triage runbook:
// verify status, investigate, apply the fix, confirm stability.
func FallbackResolutionPlan(incidentType string) model.ResolutionPlan {
	if incidentType == "" {
		incidentType = defaultIncidentType
	}
	return model.ResolutionPlan{
		Generated: false,
		Notes:     fmt.Sprintf("Structured resolution approach for %s incident", incidentType),
		Steps: []model.ResolutionStep{
			{
				Order:  1,
				Action: "Gather additional incident details and verify system status",
				Detail: "Confirm the reported symptoms and the current health of the affected systems.",
				Query:  "SELECT status FROM system_health WHERE component = 'portnet'",
			},
			{
				Order:  2,
				Action: "Identify specific failure points and affected processes",
				Detail: "Review errors logged around the incident window to confirm the suspected root cause.",
				Query:  "SELECT * FROM error_logs WHERE logged_at >= NOW() - INTERVAL '1 hour'",
			},
			{
				Order:  3,
				Action: fmt.Sprintf("Apply the standard recovery procedure for %s incidents", incidentType),
				Detail: "Targeted fix based on the investigation findings, typically a service restart or configuration correction.",
			},
			{
				Order:  4,
				Action: "Verify resolution and monitor system stability",
				Detail: "Confirm the fix with the reporter and watch error rates settle.",
				Query:  "SELECT COUNT(*) FROM error_logs WHERE logged_at >= NOW() - INTERVAL '5 minutes'",
			},
		},
	}
}
