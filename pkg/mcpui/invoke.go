package mcpui

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/goliatone/go-treads/pkg/response"
)

// NoResponse is the payload used when a tool returns nothing usable.
const NoResponse = "No response"

// Invoker calls agent tools.
type Invoker struct {
	conn *Connector
}

// NewInvoker returns an Invoker backed by conn.
func NewInvoker(conn *Connector) *Invoker {
	return &Invoker{conn: conn}
}

// Invoke calls the tool named agent with the prompt argument and returns the
// agent payload extracted from the result.
func (i *Invoker) Invoke(ctx context.Context, agent, prompt string) (any, error) {
	var result *mcp.CallToolResult
	err := i.conn.Do(ctx, func(session *mcp.ClientSession) error {
		var err error
		result, err = session.CallTool(ctx, &mcp.CallToolParams{
			Name:      agent,
			Arguments: map[string]any{"prompt": prompt},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mcpui: call tool %s: %w", agent, err)
	}
	if result != nil && result.IsError {
		return nil, fmt.Errorf("mcpui: tool %s failed: %s", agent, firstText(result))
	}
	return FromToolResult(result), nil
}

// FromToolResult picks the agent payload out of a tool result: the first text
// content item interpreted by response.FromText, else the structured
// content, else NoResponse.
func FromToolResult(result *mcp.CallToolResult) any {
	if result == nil {
		return NoResponse
	}
	if text := firstText(result); text != "" {
		return response.FromText(text)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent
	}
	return NoResponse
}

func firstText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if tc, ok := content.(*mcp.TextContent); ok && strings.TrimSpace(tc.Text) != "" {
			return tc.Text
		}
	}
	return ""
}
