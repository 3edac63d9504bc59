package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/model"
)

var (
	analyzePlan     bool
	analyzeJSON     bool
	analyzeSave     bool
	analyzeReporter string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <description>",
	Short: "Triage a single incident description",
	Long:  "Runs the full analysis flow for one description: corpus-ranked context, model completion, rule-based fallback on provider failure.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cli"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		triage := newAnalyzer(st)
		description := strings.Join(args, " ")

		analysis, err := triage.Analyze(ctx, description)
		if err != nil {
			return err
		}

		var plan *model.ResolutionPlan
		if analyzePlan {
			p := triage.GenerateResolutionPlan(ctx, description, analysis)
			plan = &p
		}

		var incident *model.Incident
		if analyzeSave {
			incident, err = st.CreateIncident(ctx, model.Incident{
				Description: description,
				Source:      model.SourceCLI,
				Reporter:    analyzeReporter,
				Analysis:    analysis,
			})
			if err != nil {
				return eris.Wrap(err, "persist incident")
			}
			zap.L().Info("incident saved", zap.String("reference", incident.Reference))
		}

		if analyzeJSON {
			return printJSON(os.Stdout, struct {
				Analysis model.Analysis        `json:"analysis"`
				Plan     *model.ResolutionPlan `json:"plan,omitempty"`
				Incident *model.Incident       `json:"incident,omitempty"`
			}{analysis, plan, incident})
		}

		renderAnalysis(os.Stdout, analysis, plan, incident)
		return nil
	},
}

// renderAnalysis writes the human-readable triage report.
func renderAnalysis(out io.Writer, analysis model.Analysis, plan *model.ResolutionPlan, incident *model.Incident) {
	path := "rule-based fallback"
	if !analysis.Fallback {
		path = fmt.Sprintf("model (%s)", analysis.Provider)
	}

	_, _ = fmt.Fprintf(out, "Incident Type:    %s\n", analysis.IncidentType)
	_, _ = fmt.Fprintf(out, "Pattern Match:    %s\n", analysis.PatternMatch)
	_, _ = fmt.Fprintf(out, "Root Cause:       %s\n", analysis.RootCause)
	_, _ = fmt.Fprintf(out, "Impact:           %s\n", analysis.Impact)
	_, _ = fmt.Fprintf(out, "Urgency:          %s\n", analysis.Urgency)
	_, _ = fmt.Fprintf(out, "Affected Systems: %s\n", strings.Join(analysis.AffectedSystems, ", "))
	_, _ = fmt.Fprintf(out, "Analysis Path:    %s\n", path)
	if incident != nil {
		_, _ = fmt.Fprintf(out, "Saved As:         %s\n", incident.Reference)
	}

	if plan != nil {
		_, _ = fmt.Fprintln(out, "\nResolution Plan:")
		for i, step := range plan.Steps {
			_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, step.Action)
			if step.Detail != "" {
				_, _ = fmt.Fprintf(out, "     %s\n", step.Detail)
			}
			if step.Query != "" {
				_, _ = fmt.Fprintf(out, "     query: %s\n", step.Query)
			}
		}
		if plan.Notes != "" {
			_, _ = fmt.Fprintf(out, "  notes: %s\n", plan.Notes)
		}
	}
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzePlan, "plan", false, "also generate a resolution plan")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the incident to the store")
	analyzeCmd.Flags().StringVar(&analyzeReporter, "reporter", "", "reporter recorded on the saved incident")
	rootCmd.AddCommand(analyzeCmd)
}
