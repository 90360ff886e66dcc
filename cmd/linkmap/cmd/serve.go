package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/linkmap/internal/logging"
	"github.com/Aman-CERP/linkmap/internal/mcp"
)

func newServeCmd(g *globalOptions) *cobra.Command {
	var (
		transport   string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis tools over MCP",
		Long: `Serve the analysis tools to AI assistants over the Model Context Protocol
on stdin/stdout.

stdout carries only protocol messages, so logs go to ~/.linkmap/logs/.
With --metrics-addr, Prometheus metrics are served over HTTP at /metrics.`,
		Example: `  linkmap serve
  linkmap serve --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, g, transport, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (overrides server.metrics_addr)")

	return cmd
}

func runServe(ctx context.Context, g *globalOptions, transport, metricsAddr string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	level := cfg.Server.LogLevel
	if g.debug {
		level = "debug"
	}
	cleanup, err := logging.SetupServeMode(level)
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := g.open()
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if metricsAddr == "" {
		metricsAddr = a.cfg.Server.MetricsAddr
	}
	if metricsAddr != "" {
		srv, addr, err := startMetricsServer(metricsAddr, a.metrics.Handler())
		if err != nil {
			return err
		}
		slog.Info("metrics_server_started", slog.String("addr", addr.String()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	server, err := mcp.NewServer(a.svc, slog.Default())
	if err != nil {
		return err
	}
	err = server.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// startMetricsServer serves handler at /metrics on addr and returns the
// bound address.
func startMetricsServer(addr string, handler http.Handler) (*http.Server, net.Addr, error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_failed", slog.String("error", err.Error()))
		}
	}()
	return srv, ln.Addr(), nil
}
