package mcpui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/goliatone/go-treads/pkg/resolver"
)

// ErrInvalidURI reports a resource URI outside the ui:// scheme.
var ErrInvalidURI = errors.New("mcpui: uri must start with ui://")

// Lookup reads template resources with resources/read. It satisfies
// resolver.Lookup.
type Lookup struct {
	conn *Connector
}

var _ resolver.Lookup = (*Lookup)(nil)

// NewLookup returns a Lookup backed by conn.
func NewLookup(conn *Connector) *Lookup {
	return &Lookup{conn: conn}
}

// Lookup returns the template stored at uri. Missing resources, and
// resources without text, wrap resolver.ErrNotFound.
func (l *Lookup) Lookup(ctx context.Context, uri string) (resolver.Source, error) {
	var result *mcp.ReadResourceResult
	err := l.conn.Do(ctx, func(session *mcp.ClientSession) error {
		var err error
		result, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrUnavailable):
			return resolver.Source{}, err
		case isNotFound(err):
			return resolver.Source{}, fmt.Errorf("mcpui: %s: %w", uri, resolver.ErrNotFound)
		default:
			return resolver.Source{}, fmt.Errorf("mcpui: read %s: %w", uri, err)
		}
	}

	src, ok := sourceFromResult(uri, result)
	if !ok {
		return resolver.Source{}, fmt.Errorf("mcpui: %s has no text content: %w", uri, resolver.ErrNotFound)
	}
	return src, nil
}

// ReadUI returns the HTML stored at a ui:// resource.
func (l *Lookup) ReadUI(ctx context.Context, uri string) (string, error) {
	if !resolver.IsUIURI(uri) {
		return "", ErrInvalidURI
	}
	src, err := l.Lookup(ctx, strings.TrimSpace(uri))
	if err != nil {
		return "", err
	}
	return src.Body, nil
}

// errResourceNotFound carries the resource-not-found JSON-RPC code. SDK wire
// errors compare by code under errors.Is, so the message is ignored.
var errResourceNotFound = mcp.ResourceNotFoundError("")

func isNotFound(err error) bool {
	return errors.Is(err, errResourceNotFound)
}

func sourceFromResult(uri string, result *mcp.ReadResourceResult) (resolver.Source, bool) {
	if result == nil {
		return resolver.Source{}, false
	}
	for _, item := range result.Contents {
		if item == nil || strings.TrimSpace(item.Text) == "" {
			continue
		}
		body, mimeType := unwrapEnvelope(item.Text)
		if strings.TrimSpace(body) == "" {
			continue
		}
		if mimeType == "" {
			mimeType = item.MIMEType
		}
		src := resolver.Source{URI: item.URI, MIMEType: mimeType, Body: body}
		if src.URI == "" {
			src.URI = uri
		}
		return src, true
	}
	return resolver.Source{}, false
}

type envelopeContent struct {
	MIMEType           string `json:"mimeType"`
	Text               string `json:"text"`
	HTMLString         string `json:"htmlString"`
	HTMLTemplateString string `json:"htmlTemplateString"`
}

func (c envelopeContent) body() string {
	for _, candidate := range []string{c.Text, c.HTMLString, c.HTMLTemplateString} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}

type envelope struct {
	Content *envelopeContent `json:"content"`
	envelopeContent
}

// unwrapEnvelope extracts the template from a JSON resource envelope of the
// form {"content": {"mimeType": ..., "text": ...}}. Text that is not such an
// envelope is returned unchanged.
func unwrapEnvelope(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return text, ""
	}

	var env envelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return text, ""
	}
	if env.Content != nil {
		if body := env.Content.body(); body != "" {
			return body, env.Content.MIMEType
		}
	}
	if body := env.envelopeContent.body(); body != "" {
		return body, env.MIMEType
	}
	return text, ""
}
