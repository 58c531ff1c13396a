package treads

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-treads/pkg/resolver"
	"github.com/goliatone/go-treads/pkg/templates"
)

// Result aliases resolver.Result for callers that only import the root
// package.
type Result = resolver.Result

// Lookup aliases resolver.Lookup.
type Lookup = resolver.Lookup

// NewResolver exposes the resolver constructor from the top-level module.
func NewResolver(options ...resolver.Option) (*resolver.Resolver, error) {
	return resolver.New(options...)
}

// Render classifies payload and renders it for agent. Failures are rendered
// as an error_response fragment, so the returned markup is always usable.
func Render(ctx context.Context, agent string, payload any, prompt string, options ...resolver.Option) (Result, error) {
	r, err := resolver.New(options...)
	if err != nil {
		return Result{}, err
	}
	return r.Respond(ctx, resolver.NewRequest(agent, payload, prompt)), nil
}

// EmbeddedTemplates exposes the built-in response templates so applications
// can copy or extend them.
func EmbeddedTemplates() fs.FS {
	return templates.FS()
}
