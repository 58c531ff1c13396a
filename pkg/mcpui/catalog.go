package mcpui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/goliatone/go-treads/pkg/resolver"
)

// Catalog lists what the MCP server publishes and turns prompts and
// resources into chat prompt text.
type Catalog struct {
	conn *Connector
}

// NewCatalog returns a Catalog backed by conn.
func NewCatalog(conn *Connector) *Catalog {
	return &Catalog{conn: conn}
}

// Resources lists every resource, following pagination.
func (c *Catalog) Resources(ctx context.Context) ([]*mcp.Resource, error) {
	return collect(ctx, c.conn, "resources", func(s *mcp.ClientSession) iter.Seq2[*mcp.Resource, error] {
		return s.Resources(ctx, nil)
	})
}

// ResourceTemplates lists every resource template, following pagination.
func (c *Catalog) ResourceTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error) {
	return collect(ctx, c.conn, "resource templates", func(s *mcp.ClientSession) iter.Seq2[*mcp.ResourceTemplate, error] {
		return s.ResourceTemplates(ctx, nil)
	})
}

// DataTemplates lists the resource templates outside the ui:// scheme.
func (c *Catalog) DataTemplates(ctx context.Context) ([]*mcp.ResourceTemplate, error) {
	all, err := c.ResourceTemplates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*mcp.ResourceTemplate, 0, len(all))
	for _, tmpl := range all {
		if tmpl == nil || resolver.IsUIURI(tmpl.URITemplate) {
			continue
		}
		out = append(out, tmpl)
	}
	return out, nil
}

// Tools lists every tool, following pagination.
func (c *Catalog) Tools(ctx context.Context) ([]*mcp.Tool, error) {
	return collect(ctx, c.conn, "tools", func(s *mcp.ClientSession) iter.Seq2[*mcp.Tool, error] {
		return s.Tools(ctx, nil)
	})
}

// Prompts lists every prompt, following pagination.
func (c *Catalog) Prompts(ctx context.Context) ([]*mcp.Prompt, error) {
	return collect(ctx, c.conn, "prompts", func(s *mcp.ClientSession) iter.Seq2[*mcp.Prompt, error] {
		return s.Prompts(ctx, nil)
	})
}

// PromptText renders the prompt name with args and returns the text of its
// first message.
func (c *Catalog) PromptText(ctx context.Context, name string, args map[string]string) (string, error) {
	var result *mcp.GetPromptResult
	err := c.conn.Do(ctx, func(session *mcp.ClientSession) error {
		var err error
		result, err = session.GetPrompt(ctx, &mcp.GetPromptParams{Name: name, Arguments: args})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("mcpui: get prompt %s: %w", name, err)
	}
	if result == nil || len(result.Messages) == 0 || result.Messages[0] == nil {
		return "", fmt.Errorf("mcpui: prompt %s returned no messages", name)
	}
	text, ok := result.Messages[0].Content.(*mcp.TextContent)
	if !ok {
		return "", fmt.Errorf("mcpui: prompt %s: first message is not text", name)
	}
	return text.Text, nil
}

// ResourcePrompt reads the resource at uri and frames its text as a prompt
// for the chat agent, followed by instructions when given.
func (c *Catalog) ResourcePrompt(ctx context.Context, uri, instructions string) (string, error) {
	var result *mcp.ReadResourceResult
	err := c.conn.Do(ctx, func(session *mcp.ClientSession) error {
		var err error
		result, err = session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("mcpui: %s: %w", uri, resolver.ErrNotFound)
		}
		return "", fmt.Errorf("mcpui: read %s: %w", uri, err)
	}

	instructions = strings.TrimSpace(instructions)
	content := resourceText(result)
	if content == "" {
		return strings.TrimSpace(fmt.Sprintf("I'd like to know about the resource at %s %s", uri, instructions)), nil
	}

	prompt := fmt.Sprintf("Resource from %s:\n\n%s", uri, content)
	if instructions != "" {
		prompt += "\n\nInstructions: " + instructions
	}
	return prompt, nil
}

// resourceText returns the first text content. A JSON object with a "text"
// field yields that field; other JSON is re-indented.
func resourceText(result *mcp.ReadResourceResult) string {
	if result == nil {
		return ""
	}
	for _, item := range result.Contents {
		if item == nil || strings.TrimSpace(item.Text) == "" {
			continue
		}
		raw := []byte(strings.TrimSpace(item.Text))
		if !json.Valid(raw) {
			return item.Text
		}
		var obj struct {
			Text *string `json:"text"`
		}
		if json.Unmarshal(raw, &obj) == nil && obj.Text != nil {
			return *obj.Text
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, raw, "", "  "); err != nil {
			return item.Text
		}
		return buf.String()
	}
	return ""
}

func collect[T any](ctx context.Context, conn *Connector, what string, list func(*mcp.ClientSession) iter.Seq2[*T, error]) ([]*T, error) {
	out := []*T{}
	err := conn.Do(ctx, func(session *mcp.ClientSession) error {
		for item, err := range list(session) {
			if err != nil {
				return err
			}
			out = append(out, item)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mcpui: list %s: %w", what, err)
	}
	return out, nil
}
