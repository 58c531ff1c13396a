package resolver

import (
	"context"
	"errors"
	"fmt"
)

// LookupError reports a lookup failure that is not a miss, such as a
// protocol fault returned by the template server.
type LookupError struct {
	URI string
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("resolver: lookup %s: %v", e.URI, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// TemplateError reports a template that failed to parse or execute.
type TemplateError struct {
	Stage        Stage
	URI          string
	ResponseType string
	Err          error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("resolver: render %s template %s: %v", e.Stage, e.target(), e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

func (e *TemplateError) target() string {
	if e.URI != "" {
		return e.URI
	}
	return e.ResponseType
}

// Describe turns a render failure into a short description suitable for an
// error_response fragment.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var tplErr *TemplateError
	if errors.As(err, &tplErr) {
		return fmt.Sprintf("Failed to render the %s template for %s: %v", tplErr.Stage, tplErr.target(), tplErr.Err)
	}
	var lookupErr *LookupError
	if errors.As(err, &lookupErr) {
		return fmt.Sprintf("Failed to load template %s: %v", lookupErr.URI, lookupErr.Err)
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "The request was cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out"
	}
	return err.Error()
}

func failureKind(err error) string {
	var tplErr *TemplateError
	var lookupErr *LookupError
	switch {
	case errors.As(err, &tplErr):
		return "template"
	case errors.As(err, &lookupErr):
		return "lookup"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
