package analyzer

import (
	"strings"

	"github.com/portops/triage-cli/internal/model"
)

// categoryRule maps a keyword set to a classification. Rules are checked
// in order and the first hit wins.
type categoryRule struct {
	keywords     []string
	incidentType string
	systems      []string
	urgency      model.Urgency // baseline override; empty keeps Medium
}

var categoryRules = []categoryRule{
	{
		keywords:     []string{"container", "cmau", "gesu", "trlu"},
		incidentType: "Container Management",
		systems:      []string{"Container Management System", "PORTNET"},
	},
	{
		keywords:     []string{"vessel", "ship", "mv "},
		incidentType: "Vessel Operations",
		systems:      []string{"Vessel Management System", "PORTNET"},
		urgency:      model.UrgencyHigh,
	},
	{
		keywords:     []string{"edi", "message", "ref-ift"},
		incidentType: "EDI Processing",
		systems:      []string{"EDI System", "Message Processing"},
	},
	{
		keywords:     []string{"gate", "truck", "access"},
		incidentType: "Terminal Operations",
		systems:      []string{"Gate System", "Access Control"},
	},
	{
		keywords:     []string{"billing", "invoice", "charge"},
		incidentType: "Financial Operations",
		systems:      []string{"Billing System", "Financial Module"},
	},
}

// Urgency keyword passes. These run after category matching and override
// its baseline when they hit; when neither hits the baseline stands.
var (
	highUrgencyKeywords = []string{"critical", "urgent", "error", "failure", "stuck"}
	lowUrgencyKeywords  = []string{"minor", "cosmetic"}
)

const fallbackImpact = "Operational impact being assessed through system analysis"

const fallbackRootCause = "Requires further investigation using diagnostic queries"

// Classify produces a deterministic rule-based analysis for when the
// model is unreachable, unconfigured, or unparseable. It is pure: the
// same description always yields the same result.
func Classify(description string) model.Analysis {
	lower := strings.ToLower(description)

	analysis := model.Analysis{
		IncidentType:    defaultIncidentType,
		Impact:          fallbackImpact,
		Urgency:         model.UrgencyMedium,
		AffectedSystems: []string{},
		Fallback:        true,
	}

	for _, rule := range categoryRules {
		if containsAny(lower, rule.keywords...) {
			analysis.IncidentType = rule.incidentType
			analysis.AffectedSystems = append([]string{}, rule.systems...)
			if rule.urgency != "" {
				analysis.Urgency = rule.urgency
			}
			break
		}
	}

	if containsAny(lower, highUrgencyKeywords...) {
		analysis.Urgency = model.UrgencyHigh
	} else if containsAny(lower, lowUrgencyKeywords...) {
		analysis.Urgency = model.UrgencyLow
	}

	analysis.RootCause = inferRootCause(lower)
	analysis.PatternMatch = "Rule-based match: " + analysis.IncidentType
	return analysis
}

// inferRootCause picks the most specific known failure narrative for the
// description. Checks run in order and the first hit wins.
func inferRootCause(lower string) string {
	switch {
	case strings.Contains(lower, "container") && containsAny(lower, "stuck", "error", "failure"):
		return "Container processing workflow interrupted. Likely causes: EDI message corruption, database lock, or system timeout during container status update."
	case strings.Contains(lower, "vessel") && strings.Contains(lower, "arrival"):
		return "Vessel arrival processing issue. Possible causes: Port schedule conflict, berth availability problem, or EDI message validation failure."
	case strings.Contains(lower, "edi") && strings.Contains(lower, "message"):
		return "EDI message processing failure. Common causes: Invalid message format, missing required fields, or communication timeout with external systems."
	case strings.Contains(lower, "gate"):
		return "Terminal gate operation disruption. Potential causes: Access control system malfunction, container verification failure, or database connectivity issue."
	case strings.Contains(lower, "billing"):
		return "Financial transaction processing error. Likely causes: Rate calculation error, missing charge configuration, or invoice generation failure."
	case containsAny(lower, "timeout", "slow", "performance"):
		return "System performance degradation. Possible causes: Database query optimization needed, high server load, or network latency issues."
	case containsAny(lower, "error", "exception", "failure"):
		return "Application error detected. Investigate system logs for specific error messages, check database connectivity, and verify service dependencies."
	default:
		return fallbackRootCause
	}
}

// containsAny reports whether s contains any of the given substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
