package resolver

import (
	"context"
	"errors"
)

var (
	// ErrNotFound reports that no template exists at a URI. Lookups return it
	// (or wrap it) to advance the fallback chain.
	ErrNotFound = errors.New("resolver: template not found")

	// ErrUnavailable reports that the template source could not be reached.
	// It is treated like ErrNotFound.
	ErrUnavailable = errors.New("resolver: template source unavailable")
)

// Source is a template body returned by a Lookup.
type Source struct {
	URI      string
	MIMEType string
	Body     string
}

// Lookup resolves a ui:// URI to a template body.
type Lookup interface {
	Lookup(ctx context.Context, uri string) (Source, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, uri string) (Source, error)

// Lookup calls f.
func (f LookupFunc) Lookup(ctx context.Context, uri string) (Source, error) {
	return f(ctx, uri)
}

// NoLookup never finds a template, leaving only built-in and generic stages.
var NoLookup Lookup = LookupFunc(func(context.Context, string) (Source, error) {
	return Source{}, ErrNotFound
})
