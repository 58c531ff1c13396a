package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/goliatone/go-treads/internal/config"
	"github.com/goliatone/go-treads/pkg/mcpui"
	"github.com/goliatone/go-treads/pkg/resolver"
)

// runtime is the resolver and MCP plumbing shared by serve and render.
type runtime struct {
	resolver *resolver.Resolver
	lookup   *mcpui.Lookup
	invoker  *mcpui.Invoker
	catalog  *mcpui.Catalog
}

// buildRuntime wires the resolver. With useMCP unset only built-in
// templates are used.
func buildRuntime(cfg config.Config, logger *zap.Logger, useMCP bool, extra ...resolver.Option) (*runtime, error) {
	rt := &runtime{}
	options := []resolver.Option{
		resolver.WithLogger(logger),
		resolver.WithLookupTimeout(cfg.MCP.Timeout),
	}
	if !cfg.Render.Sanitize {
		options = append(options, resolver.WithSanitizer(nil))
	}

	if useMCP {
		conn, err := mcpui.NewConnector(
			mcpui.WithEndpoint(cfg.MCP.URL),
			mcpui.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("cli: mcp connector: %w", err)
		}
		rt.lookup = mcpui.NewLookup(conn)
		rt.invoker = mcpui.NewInvoker(conn)
		rt.catalog = mcpui.NewCatalog(conn)

		var lookup resolver.Lookup = rt.lookup
		if cfg.MCP.CacheTTL > 0 {
			lookup = mcpui.NewCachedLookup(rt.lookup, cfg.MCP.CacheTTL)
		}
		options = append(options, resolver.WithLookup(lookup))
	}

	r, err := resolver.New(append(options, extra...)...)
	if err != nil {
		return nil, err
	}
	rt.resolver = r
	return rt, nil
}
