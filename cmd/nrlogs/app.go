package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nrlogs/nrlogs/internal/accounts"
	"github.com/nrlogs/nrlogs/internal/config"
	"github.com/nrlogs/nrlogs/internal/logs"
	"github.com/nrlogs/nrlogs/internal/metrics"
	"github.com/nrlogs/nrlogs/internal/newrelic"
	"github.com/nrlogs/nrlogs/internal/pkg/logger"
)

// app holds the services shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	client   *newrelic.Client
	logs     *logs.Service
	accounts *accounts.Resolver
	metrics  *metrics.Metrics

	closer io.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	a := &app{cfg: cfg, metrics: metrics.New()}

	// stdout carries MCP traffic and command output, so logs never go there.
	if cfg.Log.File != "" {
		log, closer, err := logger.NewFile(cfg.Log.Level, cfg.Log.Format, cfg.Log.File)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		a.log, a.closer = log, closer
	} else {
		a.log = logger.New(cfg.Log.Level, cfg.Log.Format)
	}

	a.client = newrelic.New(newrelic.Config{
		APIKey:    cfg.NewRelic.APIKey,
		Endpoint:  cfg.NewRelic.Endpoint,
		Timeout:   cfg.NewRelic.Timeout,
		RateLimit: cfg.NewRelic.RateLimit,
		Logger:    a.log,
	})
	a.logs = logs.NewService(logs.ServiceConfig{
		Backend:         a.client,
		MaxResponseSize: cfg.Response.MaxSize,
		Metrics:         a.metrics,
		Logger:          a.log,
	})
	a.accounts = accounts.NewResolver(a.client)

	return a, nil
}

func (a *app) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}
