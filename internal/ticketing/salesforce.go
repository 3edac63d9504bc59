package ticketing

import (
	"context"

	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/pkg/salesforce"
)

// SalesforceBackend files incidents as Salesforce Cases.
type SalesforceBackend struct {
	client salesforce.Client
}

// NewSalesforceBackend creates a Salesforce backend.
func NewSalesforceBackend(client salesforce.Client) *SalesforceBackend {
	return &SalesforceBackend{client: client}
}

func (b *SalesforceBackend) Name() string { return "salesforce" }

func (b *SalesforceBackend) CreateTicket(ctx context.Context, incident model.Incident) (string, error) {
	id, err := b.client.InsertOne(ctx, "Case", map[string]any{
		"Subject":     Summary(incident),
		"Description": Description(incident),
		"Priority":    casePriority(incident.Analysis.Urgency),
		"Origin":      "Web",
	})
	if err != nil {
		return "", err
	}

	// The insert returns the opaque record ID. Agents work with the
	// CaseNumber, so fetch it; the case exists either way, so a failed
	// lookup falls back to the record ID.
	c, err := salesforce.FindCaseByID(ctx, b.client, id)
	if err != nil {
		zap.L().Warn("ticketing: case number lookup failed", zap.String("case_id", id), zap.Error(err))
		return id, nil
	}
	if c == nil || c.CaseNumber == "" {
		return id, nil
	}
	return c.CaseNumber, nil
}

// casePriority maps urgency onto the Case priority picklist. Salesforce
// has no Critical level, so Critical collapses into High.
func casePriority(u model.Urgency) string {
	switch u {
	case model.UrgencyCritical, model.UrgencyHigh:
		return "High"
	case model.UrgencyLow:
		return "Low"
	default:
		return "Medium"
	}
}
