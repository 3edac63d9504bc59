package model

// ResolutionStep is one ordered action in a resolution plan.
type ResolutionStep struct {
	Order  int    `json:"order"`
	Action string `json:"action"`
	Detail string `json:"detail,omitempty"`
	Query  string `json:"query,omitempty"`
}

// ResolutionPlan holds the proposed resolution steps for an incident.
// Generated is false when the deterministic fallback plan was used.
type ResolutionPlan struct {
	Steps     []ResolutionStep `json:"steps"`
	Generated bool             `json:"generated"`
	Notes     string           `json:"notes,omitempty"`
}

// EscalationSummary is the management-facing briefing for an escalated
// incident.
type EscalationSummary struct {
	ExecutiveSummary        string   `json:"executive_summary"`
	BusinessImpact          string   `json:"business_impact"`
	UrgencyJustification    string   `json:"urgency_justification"`
	ResourceRequirements    []string `json:"resource_requirements"`
	EstimatedResolutionTime string   `json:"estimated_resolution_time"`
	StakeholderNotification []string `json:"stakeholder_notification"`
	EscalationLevel         string   `json:"escalation_level"`
}

// EscalationLevelFor maps incident urgency to the default escalation level.
func EscalationLevelFor(u Urgency) string {
	switch u {
	case UrgencyCritical:
		return "Level 3"
	case UrgencyHigh:
		return "Level 2"
	default:
		return "Level 1"
	}
}
