package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nrlogs/nrlogs/internal/mcp"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server exposing the query_logs and get_account_id tools.

The server speaks newline-delimited JSON-RPC on stdio unless a unix socket
or TCP address is configured.

Examples:
  nrlogs serve                          # stdio
  nrlogs serve --socket /tmp/nrlogs.sock
  nrlogs serve --tcp 127.0.0.1:7411`,
		RunE: runServe,
	}

	cmd.Flags().String("socket", "", "unix socket path (overrides config)")
	cmd.Flags().String("tcp", "", "TCP listen address (overrides config)")
	cmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if socket, _ := cmd.Flags().GetString("socket"); socket != "" {
		a.cfg.MCP.SocketPath, a.cfg.MCP.TCPAddr = socket, ""
	}
	if addr, _ := cmd.Flags().GetString("tcp"); addr != "" {
		a.cfg.MCP.TCPAddr, a.cfg.MCP.SocketPath = addr, ""
	}

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		a.cfg.Metrics.Addr = addr
	}

	log := a.log
	log.Info("Starting nrlogs MCP server",
		"version", version,
		"tools", []string{mcp.ToolQueryLogs, mcp.ToolGetAccountID})
	if a.cfg.HasAPIKey() {
		log.Info("API key configured", "length", len(a.cfg.NewRelic.APIKey))
	} else {
		log.Warn("NEW_RELIC_API_KEY is not set; tool calls will fail until it is")
	}
	log.Info("Using NerdGraph endpoint", "endpoint", a.client.Endpoint())

	handler := mcp.NewHandler(mcp.HandlerConfig{
		Logs:     a.logs,
		Accounts: a.accounts,
		Version:  version,
		Metrics:  a.metrics,
		Logger:   log,
	})
	srv := mcp.NewServer(mcp.ServerConfig{
		SocketPath: a.cfg.MCP.SocketPath,
		TCPAddr:    a.cfg.MCP.TCPAddr,
		Handler:    handler,
		Logger:     log,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.Metrics.Addr != "" {
		metricsSrv := startMetricsServer(a, a.cfg.Metrics.Addr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				log.Warn("Metrics server shutdown error", "error", err)
			}
		}()
	}

	if a.cfg.MCP.SocketPath == "" && a.cfg.MCP.TCPAddr == "" {
		log.Info("MCP server ready on stdio")
		err = srv.Serve(ctx, os.Stdin, os.Stdout)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		err = srv.Start(ctx)
	}

	log.Info("Server stopped")
	return err
}

func startMetricsServer(a *app, addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.log.Info("Starting metrics server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Metrics server error", "error", err)
		}
	}()
	return srv
}
