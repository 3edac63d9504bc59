package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/escalation"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/pkg/notion"
)

var (
	escalateNotion bool
	escalateJSON   bool
)

var escalateCmd = &cobra.Command{
	Use:   "escalate <incident>",
	Short: "Generate an escalation summary for an incident",
	Long:  "Builds the management-facing briefing for a stored incident, marks it escalated, and optionally publishes the summary to the duty management database in Notion.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		if escalateNotion && (cfg.Notion.Token == "" || cfg.Notion.IncidentDB == "") {
			return eris.New("notion.token and notion.incident_db are required for --notion")
		}
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		incident, err := st.GetIncident(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "load incident %s", args[0])
		}

		triage := newAnalyzer(st)
		summary := triage.GenerateEscalationSummary(ctx, *incident)

		if err := st.UpdateIncidentStatus(ctx, incident.ID, model.IncidentEscalated); err != nil {
			return eris.Wrap(err, "mark incident escalated")
		}

		if escalateNotion {
			publisher := escalation.NewPublisher(notion.NewClient(cfg.Notion.Token), cfg.Notion.IncidentDB)
			page, err := publisher.Publish(ctx, *incident, summary)
			if err != nil {
				return eris.Wrap(err, "publish escalation")
			}
			zap.L().Info("escalation published", zap.String("page", page))
		}

		if escalateJSON {
			return printJSON(os.Stdout, struct {
				Reference string                  `json:"reference"`
				Summary   model.EscalationSummary `json:"summary"`
			}{incident.Reference, summary})
		}

		renderEscalation(os.Stdout, *incident, summary)
		return nil
	},
}

// renderEscalation writes the human-readable escalation briefing.
func renderEscalation(out io.Writer, incident model.Incident, summary model.EscalationSummary) {
	_, _ = fmt.Fprintf(out, "Escalation for %s (%s, %s)\n\n", incident.Reference, incident.Analysis.IncidentType, incident.Analysis.Urgency)
	_, _ = fmt.Fprintf(out, "Level:      %s\n", summary.EscalationLevel)
	_, _ = fmt.Fprintf(out, "Estimate:   %s\n", summary.EstimatedResolutionTime)
	_, _ = fmt.Fprintf(out, "Summary:    %s\n", summary.ExecutiveSummary)
	if summary.BusinessImpact != "" {
		_, _ = fmt.Fprintf(out, "Impact:     %s\n", summary.BusinessImpact)
	}
	if summary.UrgencyJustification != "" {
		_, _ = fmt.Fprintf(out, "Urgency:    %s\n", summary.UrgencyJustification)
	}
	if len(summary.ResourceRequirements) > 0 {
		_, _ = fmt.Fprintf(out, "Resources:  %s\n", strings.Join(summary.ResourceRequirements, ", "))
	}
	if len(summary.StakeholderNotification) > 0 {
		_, _ = fmt.Fprintf(out, "Notify:     %s\n", strings.Join(summary.StakeholderNotification, ", "))
	}
}

func init() {
	escalateCmd.Flags().BoolVar(&escalateNotion, "notion", false, "publish the summary to the configured Notion database")
	escalateCmd.Flags().BoolVar(&escalateJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(escalateCmd)
}
