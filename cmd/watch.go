package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/intake"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the mail-drop spool for incident reports",
	Long:  "Monitors the intake directory for report files, triages accepted messages, persists incidents, and acknowledges the reporter. Runs until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("watch"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var opts []intake.Option
		if cfg.Intake.AutoTicket {
			tickets, err := initTicketing("")
			if err != nil {
				return err
			}
			opts = append(opts, intake.WithTicketer(tickets))
			zap.L().Info("auto-ticketing enabled", zap.String("backend", tickets.Backend()))
		}

		watcher := intake.New(cfg.Intake, newAnalyzer(st), st, opts...)
		return watcher.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
