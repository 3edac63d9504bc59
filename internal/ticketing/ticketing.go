// Package ticketing creates external tickets for triaged incidents. Each
// backend adapts one ticketing system; the Service routes to whichever
// backend configuration selected.
package ticketing

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
)

// summaryDescRunes caps the description prefix carried in ticket titles.
const summaryDescRunes = 100

// Backend creates a ticket in one external system and returns its key.
type Backend interface {
	Name() string
	CreateTicket(ctx context.Context, incident model.Incident) (string, error)
}

// Service routes ticket creation to the configured backend.
type Service struct {
	backend Backend
}

// NewService creates a Service over the given backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Backend returns the name of the active backend.
func (s *Service) Backend() string {
	return s.backend.Name()
}

// CreateTicket creates a ticket for the incident and returns its key.
func (s *Service) CreateTicket(ctx context.Context, incident model.Incident) (string, error) {
	key, err := s.backend.CreateTicket(ctx, incident)
	if err != nil {
		return "", eris.Wrapf(err, "ticketing: %s backend", s.backend.Name())
	}

	zap.L().Info("ticket created",
		zap.String("backend", s.backend.Name()),
		zap.String("key", key),
		zap.String("incident", incident.ID),
		zap.String("urgency", string(incident.Analysis.Urgency)),
	)
	return key, nil
}

// Summary builds the ticket title: "[urgency] incident_type: description
// prefix".
func Summary(incident model.Incident) string {
	desc := strings.TrimSpace(incident.Description)
	if runes := []rune(desc); len(runes) > summaryDescRunes {
		desc = string(runes[:summaryDescRunes]) + "..."
	}
	return fmt.Sprintf("[%s] %s: %s", incident.Analysis.Urgency, incident.Analysis.IncidentType, desc)
}

// Description renders the ticket body shared by all backends: the report
// followed by the analysis fields.
func Description(incident model.Incident) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Reference: %s\n", incident.Reference)
	fmt.Fprintf(&b, "Source: %s\n", incident.Source)
	if incident.Reporter != "" {
		fmt.Fprintf(&b, "Reporter: %s\n", incident.Reporter)
	}

	fmt.Fprintf(&b, "\nIncident:\n%s\n", incident.Description)

	a := incident.Analysis
	fmt.Fprintf(&b, "\nRoot cause: %s\n", a.RootCause)
	fmt.Fprintf(&b, "Impact: %s\n", a.Impact)
	if a.PatternMatch != "" {
		fmt.Fprintf(&b, "Pattern: %s\n", a.PatternMatch)
	}
	if len(a.AffectedSystems) > 0 {
		fmt.Fprintf(&b, "Affected systems: %s\n", strings.Join(a.AffectedSystems, ", "))
	}
	if a.Fallback {
		fmt.Fprintf(&b, "\nAnalysis produced by the rule-based classifier.\n")
	}

	return b.String()
}

// slug lowercases an incident type for use as a ticket label,
// e.g. "Vessel Operations" becomes "vessel-operations".
func slug(s string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	return strings.Join(fields, "-")
}
