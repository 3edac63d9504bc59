package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ticketBackend string

var ticketCmd = &cobra.Command{
	Use:   "ticket <incident>",
	Short: "File a ticket for a stored incident",
	Long:  "Creates a ticket in the configured backend (jira, servicenow, salesforce or local) and records the key on the incident.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ticketBackend != "" {
			cfg.Ticketing.Backend = ticketBackend
		}
		if err := cfg.Validate("ticket"); err != nil {
			return err
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

		tickets, err := initTicketing("")
		if err != nil {
			return err
		}

		key, err := tickets.CreateTicket(ctx, *incident)
		if err != nil {
			return eris.Wrapf(err, "create %s ticket", tickets.Backend())
		}

		if err := st.SetIncidentTicket(ctx, incident.ID, key); err != nil {
			return eris.Wrap(err, "record ticket key")
		}

		zap.L().Info("ticket created",
			zap.String("reference", incident.Reference),
			zap.String("backend", tickets.Backend()),
			zap.String("key", key),
		)
		fmt.Println(key)
		return nil
	},
}

func init() {
	ticketCmd.Flags().StringVar(&ticketBackend, "backend", "", "override the configured ticketing backend")
	rootCmd.AddCommand(ticketCmd)
}
