package mcpui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/pkg/resolver"
)

// Transport opens a fresh MCP transport for one session.
type Transport func(ctx context.Context) (mcp.Transport, error)

// Option configures a Connector.
type Option func(*config)

type config struct {
	endpoint   string
	httpClient *http.Client
	transport  Transport
	name       string
	version    string
	logger     *zap.Logger
}

// WithEndpoint connects over the streamable HTTP transport.
func WithEndpoint(url string) Option {
	return func(cfg *config) {
		cfg.endpoint = strings.TrimSpace(url)
	}
}

// WithHTTPClient sets the HTTP client used by the streamable transport.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) {
		cfg.httpClient = client
	}
}

// WithTransport overrides how transports are created. It takes precedence
// over WithEndpoint.
func WithTransport(transport Transport) Option {
	return func(cfg *config) {
		cfg.transport = transport
	}
}

// WithImplementation sets the client name and version announced to servers.
func WithImplementation(name, version string) Option {
	return func(cfg *config) {
		if strings.TrimSpace(name) != "" {
			cfg.name = strings.TrimSpace(name)
		}
		if strings.TrimSpace(version) != "" {
			cfg.version = strings.TrimSpace(version)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// Connector opens client sessions against one MCP server.
type Connector struct {
	client    *mcp.Client
	transport Transport
	logger    *zap.Logger
}

// NewConnector builds a Connector. Either WithEndpoint or WithTransport is
// required.
func NewConnector(options ...Option) (*Connector, error) {
	cfg := &config{
		name:    "treads",
		version: "dev",
		logger:  zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	transport := cfg.transport
	if transport == nil {
		if cfg.endpoint == "" {
			return nil, errors.New("mcpui: endpoint or transport is required")
		}
		endpoint, httpClient := cfg.endpoint, cfg.httpClient
		transport = func(context.Context) (mcp.Transport, error) {
			return &mcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: httpClient}, nil
		}
	}

	return &Connector{
		client:    mcp.NewClient(&mcp.Implementation{Name: cfg.name, Version: cfg.version}, nil),
		transport: transport,
		logger:    cfg.logger,
	}, nil
}

// Do runs fn with a new session and closes the session afterwards. Failures
// to open the session wrap resolver.ErrUnavailable.
func (c *Connector) Do(ctx context.Context, fn func(*mcp.ClientSession) error) error {
	if c == nil {
		return fmt.Errorf("mcpui: connector is nil: %w", resolver.ErrUnavailable)
	}

	transport, err := c.transport(ctx)
	if err != nil {
		return fmt.Errorf("mcpui: open transport: %v: %w", err, resolver.ErrUnavailable)
	}
	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("mcpui: connect: %w", ctxErr)
		}
		c.logger.Debug("mcp connect failed", zap.Error(err))
		return fmt.Errorf("mcpui: connect: %v: %w", err, resolver.ErrUnavailable)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			c.logger.Debug("mcp session close failed", zap.Error(closeErr))
		}
	}()

	return fn(session)
}
