package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/portops/triage-cli/internal/config"
	"github.com/portops/triage-cli/internal/model"
	"github.com/portops/triage-cli/internal/monitoring"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and incident metrics",
	Long:  "Collects the monitoring snapshot for the configured lookback window and evaluates the alert thresholds against it.",
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

		snap, err := monitoring.NewCollector(st).Collect(ctx, cfg.Monitoring.LookbackHours)
		if err != nil {
			return eris.Wrap(err, "collect metrics")
		}
		alerts := monitoring.NewAlerter(cfg.Monitoring).Evaluate(snap)

		if statusJSON {
			return printJSON(os.Stdout, struct {
				Snapshot *monitoring.MetricsSnapshot `json:"snapshot"`
				Alerts   []monitoring.Alert          `json:"alerts"`
			}{snap, alerts})
		}

		formatStatus(os.Stdout, cfg, snap, alerts)
		return nil
	},
}

// formatStatus writes the operator-facing status report.
func formatStatus(out io.Writer, cfg *config.Config, snap *monitoring.MetricsSnapshot, alerts []monitoring.Alert) {
	_, _ = fmt.Fprintf(out, "store: %s  provider: %s  ticketing: %s\n",
		cfg.Store.Driver, cfg.Model.Provider, cfg.Ticketing.Backend)
	notion := "off"
	if cfg.Notion.Token != "" && cfg.Notion.IncidentDB != "" {
		notion = "on"
	}
	_, _ = fmt.Fprintf(out, "notion publishing: %s\n\n", notion)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "incidents (last %dh)\t%d\n", snap.LookbackHours, snap.IncidentsTotal)

	sources := make([]string, 0, len(snap.IncidentsBySource))
	for source := range snap.IncidentsBySource {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		_, _ = fmt.Fprintf(w, "  from %s\t%d\n", source, snap.IncidentsBySource[source])
	}

	for _, urgency := range []model.Urgency{model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyCritical} {
		if n, ok := snap.UrgencyCounts[string(urgency)]; ok {
			_, _ = fmt.Fprintf(w, "  urgency %s\t%d\n", urgency, n)
		}
	}
	_, _ = fmt.Fprintf(w, "fallback rate\t%.1f%% (%d)\n", snap.FallbackRate*100, snap.FallbackCount)
	_, _ = fmt.Fprintf(w, "tickets created\t%d\n", snap.TicketsCreated)
	_, _ = fmt.Fprintf(w, "training corpus\t%d\n", snap.TrainingCorpus)
	_, _ = fmt.Fprintf(w, "knowledge corpus\t%d\n", snap.KnowledgeCorpus)
	_, _ = fmt.Fprintf(w, "knowledge used\t%d\n", snap.KnowledgeUsed)
	_ = w.Flush()

	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "\nno active alerts")
		return
	}
	_, _ = fmt.Fprintln(out, "\nalerts:")
	for _, alert := range alerts {
		_, _ = fmt.Fprintf(out, "  [%s] %s: %s\n", alert.Severity, alert.Type, alert.Message)
	}
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(statusCmd)
}
