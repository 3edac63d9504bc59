package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/portops/triage-cli/internal/errmatch"
)

var errorsJSON bool

var errorsCmd = &cobra.Command{
	Use:   "errors <description>",
	Short: "Look up known-error context for a description",
	Long:  "Extracts error codes from the description and matches them against knowledge titles, keywords, and past incident reports.",
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

		match, err := errmatch.NewMatcher(st).Match(ctx, strings.Join(args, " "))
		if err != nil {
			return eris.Wrap(err, "match error codes")
		}

		if errorsJSON {
			return printJSON(os.Stdout, match)
		}
		formatErrorMatch(os.Stdout, match)
		return nil
	},
}

// formatErrorMatch writes the known-error lookup result.
func formatErrorMatch(out io.Writer, match *errmatch.Match) {
	_, _ = fmt.Fprintf(out, "codes: %s\n", strings.Join(match.Codes, ", "))

	if len(match.Knowledge) == 0 && len(match.Incidents) == 0 {
		_, _ = fmt.Fprintln(out, "no known-error context recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if len(match.Knowledge) > 0 {
		_, _ = fmt.Fprintln(w, "\nKNOWLEDGE\tCATEGORY\tTYPE")
		for _, entry := range match.Knowledge {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Title, entry.Category, entry.Type)
		}
	}
	if len(match.Incidents) > 0 {
		_, _ = fmt.Fprintln(w, "\nINCIDENT\tTYPE\tURGENCY\tSTATUS")
		for _, incident := range match.Incidents {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				incident.Reference, incident.Analysis.IncidentType, incident.Analysis.Urgency, incident.Status)
		}
	}
	_ = w.Flush()
}

func init() {
	errorsCmd.Flags().BoolVar(&errorsJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(errorsCmd)
}
