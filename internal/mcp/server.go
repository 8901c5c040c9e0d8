// Package mcp exposes the fetch, extract, chunk, and compact tools and the
// webfetch:// resource surface over the Model Context Protocol.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/webfetchd/internal/config"
	"github.com/fyrsmithlabs/webfetchd/internal/fetch"
	"github.com/fyrsmithlabs/webfetchd/internal/normalize"
	"github.com/fyrsmithlabs/webfetchd/internal/resource"
)

// ServerConfig carries the identity and dependencies of the MCP server.
type ServerConfig struct {
	Name    string
	Version string
	Config  *config.Config
	Logger  *zap.Logger
}

// Server wires the processing pipeline to the MCP transport.
type Server struct {
	mcp        *mcp.Server
	cfg        *config.Config
	fetcher    *fetch.Fetcher
	normalizer *normalize.Normalizer
	store      *resource.Store
	metrics    *Metrics
	logger     *zap.Logger
}

// NewServer creates the MCP server and registers its tools. The fetcher,
// normalizer, and store are required.
func NewServer(sc ServerConfig, fetcher *fetch.Fetcher, normalizer *normalize.Normalizer, store *resource.Store) (*Server, error) {
	if sc.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("normalizer is required")
	}
	if store == nil {
		return nil, fmt.Errorf("resource store is required")
	}
	if sc.Logger == nil {
		sc.Logger = zap.NewNop()
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    sc.Name,
			Version: sc.Version,
		},
		nil,
	)

	s := &Server{
		mcp:        mcpServer,
		cfg:        sc.Config,
		fetcher:    fetcher,
		normalizer: normalizer,
		store:      store,
		metrics:    NewMetrics(),
		logger:     sc.Logger,
	}

	store.OnListChanged(func() {
		s.logger.Debug("resource list changed")
	})

	s.registerTools()
	return s, nil
}

// Metrics exposes the server's instrument set for the HTTP metrics endpoint.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Store exposes the resource store for the health endpoint.
func (s *Server) Store() *resource.Store {
	return s.store
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
