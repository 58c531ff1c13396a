// Package server exposes the renderer over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/internal/metrics"
	"github.com/goliatone/go-treads/pkg/resolver"
)

// Invoker calls an agent tool and returns its payload.
type Invoker interface {
	Invoke(ctx context.Context, agent, prompt string) (any, error)
}

// UIReader returns the HTML stored at a ui:// resource.
type UIReader interface {
	ReadUI(ctx context.Context, uri string) (string, error)
}

// Catalog lists what the MCP server publishes and builds chat prompts from
// prompts and resources.
type Catalog interface {
	Resources(ctx context.Context) ([]*mcp.Resource, error)
	ResourceTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error)
	DataTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error)
	Tools(ctx context.Context) ([]*mcp.Tool, error)
	Prompts(ctx context.Context) ([]*mcp.Prompt, error)
	PromptText(ctx context.Context, name string, args map[string]string) (string, error)
	ResourcePrompt(ctx context.Context, uri, instructions string) (string, error)
}

// Deps are the collaborators the handlers call. Resolver is required;
// routes whose dependency is missing answer 503.
type Deps struct {
	Resolver *resolver.Resolver
	Invoker  Invoker
	UI       UIReader
	Catalog  Catalog
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics mounts the collectors at GET /metrics.
func WithMetrics(collectors *metrics.Collectors) Option {
	return func(s *Server) {
		s.metrics = collectors
	}
}

// WithTimeouts sets the read and write timeouts used by HTTPServer.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// Server owns the gin engine and its handlers.
type Server struct {
	deps         Deps
	logger       *zap.Logger
	metrics      *metrics.Collectors
	readTimeout  time.Duration
	writeTimeout time.Duration
	engine       *gin.Engine
}

// New builds the router.
func New(deps Deps, options ...Option) (*Server, error) {
	if deps.Resolver == nil {
		return nil, errors.New("server: resolver is required")
	}
	s := &Server{
		deps:   deps,
		logger: zap.NewNop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	engine.GET("/healthz", s.health)
	if s.metrics != nil {
		engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := engine.Group("/api")
	api.GET("/resources", s.listResources)
	api.GET("/resource-templates", s.listResourceTemplates)
	api.GET("/tools", s.listTools)
	api.GET("/prompts", s.listPrompts)
	api.GET("/templates", s.dataTemplates)
	api.POST("/prompts/:name/messages", s.promptMessages)
	api.POST("/templates/messages", s.resourceMessages)
	api.POST("/resources/ui", s.readUI)
	api.POST("/:agent/invoke", s.invoke)
	api.POST("/:agent/render", s.render)

	s.engine = engine
	return s, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer wraps the router in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.writeTimeout,
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
