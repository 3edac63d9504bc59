// Package escalation publishes escalation summaries to the duty
// management database in Notion.
package escalation

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/pkg/notion"
)

// Property names in the escalation database schema.
const (
	propReference = "Reference"
	propType      = "Incident Type"
	propUrgency   = "Urgency"
	propLevel     = "Escalation Level"
	propEstimate  = "Estimated Resolution"
	propReported  = "Reported"
)

// Publisher writes escalation summaries into a Notion database keyed by
// incident reference.
type Publisher struct {
	client notion.Client
	dbID   string
}

// NewPublisher creates a publisher for the given database.
func NewPublisher(client notion.Client, dbID string) *Publisher {
	return &Publisher{client: client, dbID: dbID}
}

// Publish creates the escalation page for the incident, or refreshes its
// properties when the reference was published before. Notion page updates
// cannot replace body blocks, so a republish keeps the original narrative.
// Returns the page URL when the API provides one, else the page ID.
func (p *Publisher) Publish(ctx context.Context, incident model.Incident, summary model.EscalationSummary) (string, error) {
	props := pageProperties(incident, summary)

	pageID, err := notion.FindPageByTitle(ctx, p.client, p.dbID, propReference, incident.Reference)
	if err != nil {
		return "", eris.Wrap(err, "escalation: look up existing page")
	}

	log := zap.L().With(
		zap.String("incident", incident.ID),
		zap.String("reference", incident.Reference),
	)

	if pageID != "" {
		page, err := p.client.UpdatePage(ctx, pageID, &notionapi.PageUpdateRequest{Properties: props})
		if err != nil {
			return "", eris.Wrap(err, "escalation: update page")
		}
		log.Info("escalation summary refreshed in notion", zap.String("page", string(page.ID)))
		return pageLocation(page), nil
	}

	page, err := p.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(p.dbID),
		},
		Properties: props,
		Children:   summaryBlocks(summary),
	})
	if err != nil {
		return "", eris.Wrap(err, "escalation: create page")
	}
	log.Info("escalation summary published to notion", zap.String("page", string(page.ID)))
	return pageLocation(page), nil
}

func pageProperties(incident model.Incident, summary model.EscalationSummary) notionapi.Properties {
	props := notionapi.Properties{
		propReference: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(incident.Reference),
		},
		propLevel: notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: summary.EscalationLevel},
		},
	}
	if incident.Analysis.IncidentType != "" {
		props[propType] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: incident.Analysis.IncidentType},
		}
	}
	if incident.Analysis.Urgency != "" {
		props[propUrgency] = notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: string(incident.Analysis.Urgency)},
		}
	}
	if summary.EstimatedResolutionTime != "" {
		props[propEstimate] = notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: richText(summary.EstimatedResolutionTime),
		}
	}
	if !incident.CreatedAt.IsZero() {
		start := notionapi.Date(incident.CreatedAt)
		props[propReported] = notionapi.DateProperty{
			Type: notionapi.PropertyTypeDate,
			Date: &notionapi.DateObject{Start: &start},
		}
	}
	return props
}

// summaryBlocks renders the narrative sections as page body blocks.
// Empty sections are left out.
func summaryBlocks(summary model.EscalationSummary) []notionapi.Block {
	var blocks []notionapi.Block

	if summary.ExecutiveSummary != "" {
		blocks = append(blocks, heading("Executive Summary"), paragraph(summary.ExecutiveSummary))
	}
	if summary.BusinessImpact != "" {
		blocks = append(blocks, heading("Business Impact"), paragraph(summary.BusinessImpact))
	}
	if summary.UrgencyJustification != "" {
		blocks = append(blocks, heading("Urgency Justification"), paragraph(summary.UrgencyJustification))
	}
	if len(summary.ResourceRequirements) > 0 {
		blocks = append(blocks, heading("Resource Requirements"))
		for _, r := range summary.ResourceRequirements {
			blocks = append(blocks, bullet(r))
		}
	}
	if len(summary.StakeholderNotification) > 0 {
		blocks = append(blocks, heading("Stakeholders to Notify"))
		for _, s := range summary.StakeholderNotification {
			blocks = append(blocks, bullet(s))
		}
	}
	return blocks
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: content}},
	}
}

func heading(text string) notionapi.Block {
	return notionapi.Heading2Block{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeHeading2,
		},
		Heading2: notionapi.Heading{RichText: richText(text)},
	}
}

func paragraph(text string) notionapi.Block {
	return notionapi.ParagraphBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeParagraph,
		},
		Paragraph: notionapi.Paragraph{RichText: richText(text)},
	}
}

func bullet(text string) notionapi.Block {
	return notionapi.BulletedListItemBlock{
		BasicBlock: notionapi.BasicBlock{
			Object: notionapi.ObjectTypeBlock,
			Type:   notionapi.BlockTypeBulletedListItem,
		},
		BulletedListItem: notionapi.ListItem{RichText: richText(text)},
	}
}

func pageLocation(page *notionapi.Page) string {
	if page.URL != "" {
		return page.URL
	}
	return string(page.ID)
}
