package cmd

import (
	"os/signal"
	"syscall"

	"github.com/origolabs/origo/internal/metrics"
	"github.com/origolabs/origo/internal/server"
	"github.com/origolabs/origo/internal/services"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Start the HTTP API",
		Long: `Start the HTTP API serving validation, quality checks, archive audits,
preview generation, Prometheus metrics on /metrics and preview events on /ws.

Examples:
  origo serve
  origo serve --port 9000
  ORIGO_STORAGE_BACKEND=s3 origo serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			m := metrics.New()
			hub := server.NewHub(a.cfg.Server.AllowedOrigins, a.logger, m)
			svc, err := a.services(services.WithMetrics(m), services.WithEventSink(hub.Publish))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return server.New(svc, hub).Start(ctx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Host to bind (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (overrides server.port)")

	return cmd
}
