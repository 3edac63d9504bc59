package ticketing

import (
	"context"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/pkg/servicenow"
)

// defaultCategory is the incident category stamped on ServiceNow rows.
const defaultCategory = "Maritime Operations"

// ServiceNowBackend files incidents into the ServiceNow incident table.
type ServiceNowBackend struct {
	client   servicenow.Client
	category string
}

// NewServiceNowBackend creates a ServiceNow backend. An empty category
// falls back to the maritime default.
func NewServiceNowBackend(client servicenow.Client, category string) *ServiceNowBackend {
	if category == "" {
		category = defaultCategory
	}
	return &ServiceNowBackend{client: client, category: category}
}

func (b *ServiceNowBackend) Name() string { return "servicenow" }

func (b *ServiceNowBackend) CreateTicket(ctx context.Context, incident model.Incident) (string, error) {
	scale := snScale(incident.Analysis.Urgency)
	record, err := b.client.CreateIncident(ctx, servicenow.IncidentRequest{
		ShortDescription: Summary(incident),
		Description:      Description(incident),
		Urgency:          scale,
		Impact:           scale,
		Category:         b.category,
	})
	if err != nil {
		return "", err
	}
	return record.Number, nil
}

// snScale collapses the four-level urgency onto the ServiceNow 1-3
// scale. Medium and Low share 3.
func snScale(u model.Urgency) string {
	switch u {
	case model.UrgencyCritical:
		return "1"
	case model.UrgencyHigh:
		return "2"
	default:
		return "3"
	}
}
