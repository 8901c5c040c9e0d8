package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/config"
	"github.com/fyrsmithlabs/webfetchd/internal/fetch"
	httpserver "github.com/fyrsmithlabs/webfetchd/internal/http"
	"github.com/fyrsmithlabs/webfetchd/internal/logging"
	mcpserver "github.com/fyrsmithlabs/webfetchd/internal/mcp"
	"github.com/fyrsmithlabs/webfetchd/internal/normalize"
	"github.com/fyrsmithlabs/webfetchd/internal/ratelimit"
	"github.com/fyrsmithlabs/webfetchd/internal/resource"
	"github.com/fyrsmithlabs/webfetchd/internal/robots"
	"github.com/fyrsmithlabs/webfetchd/internal/ssrf"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP daemon on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		return run(ctx)
	},
}

// run wires the pipeline and blocks until the context is cancelled: config,
// logger, guards, fetcher, normalizer, store, the MCP stdio transport, and
// the HTTP sidecar for health and metrics.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	guard := ssrf.New(cfg.Allowlist())
	guard.BlockPrivate = cfg.BlockPrivateIP
	limiter := ratelimit.New(cfg.RateLimitPerHost)
	policy := robots.New(nil, logger.Named("robots"))
	fetcher := fetch.New(guard, limiter, policy, cfg.CacheTTL(), logger.Named("fetch"))
	normalizer := normalize.New(logger.Named("normalize"))
	store := resource.NewStore(0, cfg.CacheTTL())

	server, err := mcpserver.NewServer(mcpserver.ServerConfig{
		Name:    "webfetchd",
		Version: version,
		Config:  cfg,
		Logger:  logger.Named("mcp"),
	}, fetcher, normalizer, store)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	sidecar, err := httpserver.NewServer(
		cfg.HTTPAddr,
		server.Metrics().Registry(),
		func() int { return len(store.List()) },
		logger.Named("http"),
	)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	httpErr := make(chan error, 1)
	go func() { httpErr <- sidecar.Start() }()

	mcpErr := make(chan error, 1)
	go func() { mcpErr <- server.Run(ctx) }()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-mcpErr:
	case runErr = <-httpErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := sidecar.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	return runErr
}
