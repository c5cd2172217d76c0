package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ironsheep/frame-guide-mcp/internal/metrics"
	"github.com/ironsheep/frame-guide-mcp/internal/server"
)

func serveCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdin and stdout",
		Long: `Run the MCP server. Requests are read from stdin and responses written
to stdout, one JSON-RPC message per line. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}

	cmd.Flags().String("metrics-addr", "", "Serve /metrics and /healthz on this address, e.g. 127.0.0.1:9464")
	if err := bindFlags(a.v, cmd.Flags(), map[string]string{"metrics.addr": "metrics-addr"}); err != nil {
		panic(err)
	}
	return cmd
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if addr := a.settings.Metrics.Addr; addr != "" {
		var err error
		m, err = metrics.New(prometheus.NewRegistry())
		if err != nil {
			return err
		}
		go func() {
			if err := metrics.Serve(ctx, addr, m, a.log); err != nil {
				a.log.WithError(err).Error("metrics endpoint failed")
			}
		}()
	}

	client := a.vehicleClient(m)
	srv := server.New(
		server.WithLogger(a.log),
		server.WithSettings(a.settings),
		server.WithMetrics(m),
		server.WithVehicleDetector(client),
		server.WithVersion(Version),
	)

	a.log.WithFields(logrus.Fields{
		"version":    Version,
		"commit":     GitCommit,
		"remote_api": client.Configured(),
		"locale":     a.settings.MessageLocale(),
	}).Info("frame guide MCP server starting")

	// stdin reads cannot be interrupted, so a signal ends the command
	// without waiting for the reader.
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		a.log.Info("stdin closed, shutting down")
		return nil
	case <-ctx.Done():
		a.log.Info("signal received, shutting down")
		return nil
	}
}
