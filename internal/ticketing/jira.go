package ticketing

import (
	"context"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/pkg/jira"
)

// defaultIssueType is used when no issue type is configured. Jira
// projects without an Incident type can override it per install.
const defaultIssueType = "Incident"

// JiraBackend files incidents as Jira issues.
type JiraBackend struct {
	client     jira.Client
	projectKey string
	issueType  string
}

// NewJiraBackend creates a backend filing issues into the given project.
func NewJiraBackend(client jira.Client, projectKey, issueType string) *JiraBackend {
	if issueType == "" {
		issueType = defaultIssueType
	}
	return &JiraBackend{client: client, projectKey: projectKey, issueType: issueType}
}

func (b *JiraBackend) Name() string { return "jira" }

func (b *JiraBackend) CreateTicket(ctx context.Context, incident model.Incident) (string, error) {
	issue, err := b.client.CreateIssue(ctx, jira.CreateIssueRequest{
		Fields: jira.IssueFields{
			Project:     jira.ProjectRef{Key: b.projectKey},
			Summary:     Summary(incident),
			Description: Description(incident),
			IssueType:   jira.IssueTypeRef{Name: b.issueType},
			Priority:    &jira.PriorityRef{ID: jiraPriorityID(incident.Analysis.Urgency)},
			Labels:      []string{"maritime-ops", slug(incident.Analysis.IncidentType)},
		},
	})
	if err != nil {
		return "", err
	}
	return issue.Key, nil
}

// jiraPriorityID maps the urgency scale onto the standard Jira priority
// ids, 1 being Highest.
func jiraPriorityID(u model.Urgency) string {
	switch u {
	case model.UrgencyCritical:
		return "1"
	case model.UrgencyHigh:
		return "2"
	case model.UrgencyLow:
		return "4"
	default:
		return "3"
	}
}
