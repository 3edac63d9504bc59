package model

import (
	"fmt"
	"time"
)

// Urgency is the four-level ordinal severity scale used across the system.
type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

// ValidUrgency reports whether s is exactly one of the four canonical values.
// Matching is case-sensitive; callers trim whitespace before calling.
func ValidUrgency(s string) bool {
	switch Urgency(s) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// IncidentStatus represents the lifecycle state of a triaged incident.
type IncidentStatus string

const (
	IncidentOpen      IncidentStatus = "open"
	IncidentEscalated IncidentStatus = "escalated"
	IncidentTicketed  IncidentStatus = "ticketed"
	IncidentClosed    IncidentStatus = "closed"
)

// IncidentSource describes how a report entered the system.
type IncidentSource string

const (
	SourceAPI   IncidentSource = "api"
	SourceCLI   IncidentSource = "cli"
	SourceWatch IncidentSource = "watch"
	SourceBatch IncidentSource = "batch"
)

// Analysis is the structured triage result for one incident description.
// All six fields are always populated; a fallback analysis has the same
// shape as a model-backed one.
type Analysis struct {
	IncidentType    string   `json:"incident_type"`
	PatternMatch    string   `json:"pattern_match"`
	RootCause       string   `json:"root_cause"`
	Impact          string   `json:"impact"`
	Urgency         Urgency  `json:"urgency"`
	AffectedSystems []string `json:"affected_systems"`

	// Fallback marks analyses produced by the rule-based classifier so
	// operators can audit how often the degraded path ran.
	Fallback bool   `json:"fallback,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Incident is a persisted incident report plus its analysis.
type Incident struct {
	ID          string         `json:"id"`
	Reference   string         `json:"reference"`
	Description string         `json:"description"`
	Source      IncidentSource `json:"source"`
	Reporter    string         `json:"reporter,omitempty"`
	Analysis    Analysis       `json:"analysis"`
	Status      IncidentStatus `json:"status"`
	TicketKey   string         `json:"ticket_key,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IncidentReference builds the human-facing reference for an incident
// created at t, e.g. INC-20241015-142530.
func IncidentReference(t time.Time) string {
	return fmt.Sprintf("INC-%s", t.UTC().Format("20060102-150405"))
}
