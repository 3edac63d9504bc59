package model

import "time"

// TrainingExample is a historical incident paired with expert-confirmed labels.
// Scoring never mutates an example; curators may update the Validated flag.
type TrainingExample struct {
	ID              string    `json:"id"`
	Description     string    `json:"description"`
	IncidentType    string    `json:"incident_type"`
	PatternMatch    string    `json:"pattern_match"`
	RootCause       string    `json:"root_cause"`
	Impact          string    `json:"impact"`
	Urgency         Urgency   `json:"urgency"`
	AffectedSystems []string  `json:"affected_systems"`
	Category        string    `json:"category"`
	Tags            []string  `json:"tags"`
	Validated       bool      `json:"validated"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Normalize enforces the deserialization invariants: affected systems and
// tags are empty slices rather than nil, and urgency falls back to Medium
// when the stored value is not canonical.
func (t *TrainingExample) Normalize() {
	if t.AffectedSystems == nil {
		t.AffectedSystems = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Urgency != "" && !ValidUrgency(string(t.Urgency)) {
		t.Urgency = UrgencyMedium
	}
}
