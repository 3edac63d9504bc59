package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/portops/triage-cli/internal/monitoring"
	"github.com/portops/triage-cli/internal/ticketing"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the triage HTTP API",
	Long:  "Serves analysis, incident, corpus and metrics endpoints over a versioned JSON API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		// A broken ticketing backend should not keep the analysis
		// endpoints down; fall back to local keys and keep serving.
		tickets, err := initTicketing("")
		if err != nil {
			zap.L().Warn("ticketing backend unavailable, falling back to local keys",
				zap.String("backend", cfg.Ticketing.Backend),
				zap.Error(err),
			)
			tickets = ticketing.NewService(ticketing.NewLocalBackend())
		}

		a := newAPI(st, newAnalyzer(st), tickets, cfg.Monitoring.LookbackHours)
		handler := a.router(cfg.Server.CORSOrigins)

		// Periodic fallback-rate and corpus checks run for the lifetime
		// of the server.
		checker := monitoring.NewChecker(
			monitoring.NewCollector(st),
			monitoring.NewAlerter(cfg.Monitoring),
			cfg.Monitoring,
		)
		go checker.Run(ctx)

		port := resolvePort(servePort, cfg.Server.Port)
		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("ticketing", tickets.Backend()),
		)
		return startServer(ctx, handler, port)
	},
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
