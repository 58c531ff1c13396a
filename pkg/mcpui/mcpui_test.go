package mcpui

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap/zaptest"

	"github.com/goliatone/go-treads/pkg/resolver"
)

type promptInput struct {
	Prompt string `json:"prompt" jsonschema:"the user prompt"`
}

func newTestServer(t *testing.T) *mcp.Server {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{Name: "agents", Version: "test"}, nil)

	addText := func(uri, mimeType, text string) {
		server.AddResource(&mcp.Resource{URI: uri, Name: uri, MIMEType: mimeType},
			func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
				return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
					{URI: uri, MIMEType: mimeType, Text: text},
				}}, nil
			})
	}
	addText("ui://crm/table_response", "text/html", `<table class="crm">{{ response.headers|join:"," }}</table>`)
	addText("ui://app/chat_response", "application/json", `{"content":{"mimeType":"text/html","text":"<p class=\"app\">{{ response }}</p>"}}`)
	addText("ui://app/home", "application/json", `{"content":{"htmlString":"<main>Home</main>"}}`)
	addText("ui://crm/blank", "text/html", "   ")

	server.AddResource(&mcp.Resource{URI: "ui://crm/broken", Name: "broken"},
		func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return nil, errors.New("backend exploded")
		})
	server.AddResource(&mcp.Resource{URI: "ui://crm/locked", Name: "locked"},
		func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return nil, errors.New("template store: credentials not found, refusing to serve")
		})
	server.AddResource(&mcp.Resource{URI: "ui://crm/retired", Name: "retired"},
		func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		})

	addText("docs://handbook", "application/json", `{"text":"Be kind to customers."}`)
	addText("docs://limits", "application/json", `{"daily":10,"monthly":300}`)
	addText("docs://empty", "text/plain", " ")

	server.AddResourceTemplate(&mcp.ResourceTemplate{URITemplate: "docs://reports/{quarter}", Name: "reports"},
		func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{URI: req.Params.URI, Text: "report"}}}, nil
		})
	server.AddResourceTemplate(&mcp.ResourceTemplate{URITemplate: "ui://widgets/{name}", Name: "widgets"},
		func(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{{URI: req.Params.URI, Text: "<div></div>"}}}, nil
		})

	server.AddPrompt(&mcp.Prompt{Name: "summarize", Arguments: []*mcp.PromptArgument{{Name: "topic"}}},
		func(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{Messages: []*mcp.PromptMessage{
				{Role: "user", Content: &mcp.TextContent{Text: "Summarize " + req.Params.Arguments["topic"]}},
				{Role: "assistant", Content: &mcp.TextContent{Text: "ignored"}},
			}}, nil
		})

	mcp.AddTool(server, &mcp.Tool{Name: "crm", Description: "CRM agent"},
		func(_ context.Context, _ *mcp.CallToolRequest, in promptInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{
				&mcp.TextContent{Text: `{"response_type":"table_response","headers":["Prompt"],"rows":[["` + in.Prompt + `"]]}`},
			}}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "echo", Description: "Echo agent"},
		func(_ context.Context, _ *mcp.CallToolRequest, in promptInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "you said " + in.Prompt}}}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: "failing", Description: "Failing agent"},
		func(context.Context, *mcp.CallToolRequest, promptInput) (*mcp.CallToolResult, any, error) {
			return nil, nil, errors.New("agent crashed")
		})

	return server
}

func newTestConnector(t *testing.T, server *mcp.Server) *Connector {
	t.Helper()

	conn, err := NewConnector(
		WithTransport(func(ctx context.Context) (mcp.Transport, error) {
			clientTransport, serverTransport := mcp.NewInMemoryTransports()
			if _, err := server.Connect(ctx, serverTransport, nil); err != nil {
				return nil, err
			}
			return clientTransport, nil
		}),
		WithLogger(zaptest.NewLogger(t)),
	)
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}
	return conn
}

func TestLookup_PlainAndEnvelope(t *testing.T) {
	lookup := NewLookup(newTestConnector(t, newTestServer(t)))
	ctx := context.Background()

	src, err := lookup.Lookup(ctx, "ui://crm/table_response")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	want := resolver.Source{URI: "ui://crm/table_response", MIMEType: "text/html", Body: `<table class="crm">{{ response.headers|join:"," }}</table>`}
	if diff := cmp.Diff(want, src); diff != "" {
		t.Fatalf("source mismatch (-want +got):\n%s", diff)
	}

	src, err = lookup.Lookup(ctx, "ui://app/chat_response")
	if err != nil {
		t.Fatalf("lookup envelope: %v", err)
	}
	if src.Body != `<p class="app">{{ response }}</p>` || src.MIMEType != "text/html" {
		t.Fatalf("unexpected envelope source %#v", src)
	}
}

func TestLookup_NotFound(t *testing.T) {
	lookup := NewLookup(newTestConnector(t, newTestServer(t)))

	for _, uri := range []string{"ui://crm/missing", "ui://crm/blank", "ui://crm/retired"} {
		_, err := lookup.Lookup(context.Background(), uri)
		if !errors.Is(err, resolver.ErrNotFound) {
			t.Fatalf("%s: expected ErrNotFound, got %v", uri, err)
		}
	}
}

func TestLookup_ServerFaultIsNotAMiss(t *testing.T) {
	lookup := NewLookup(newTestConnector(t, newTestServer(t)))

	_, err := lookup.Lookup(context.Background(), "ui://crm/broken")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, resolver.ErrNotFound) || errors.Is(err, resolver.ErrUnavailable) {
		t.Fatalf("expected protocol fault, got %v", err)
	}
	if !strings.Contains(err.Error(), "backend exploded") {
		t.Fatalf("expected server message in %v", err)
	}
}

func TestLookup_NotFoundIsMatchedByCode(t *testing.T) {
	lookup := NewLookup(newTestConnector(t, newTestServer(t)))

	_, err := lookup.Lookup(context.Background(), "ui://crm/locked")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, resolver.ErrNotFound) {
		t.Fatalf("server fault mentioning \"not found\" must not be a miss: %v", err)
	}
	if !strings.Contains(err.Error(), "credentials not found") {
		t.Fatalf("expected server message in %v", err)
	}

	r, rerr := resolver.New(resolver.WithLookup(lookup))
	if rerr != nil {
		t.Fatalf("new resolver: %v", rerr)
	}
	_, err = r.Render(context.Background(), resolver.NewRequest("crm", map[string]any{"response_type": "locked"}, ""))
	var lookupErr *resolver.LookupError
	if !errors.As(err, &lookupErr) || lookupErr.URI != "ui://crm/locked" {
		t.Fatalf("expected LookupError for ui://crm/locked, got %v", err)
	}
}

func TestLookup_Unavailable(t *testing.T) {
	conn, err := NewConnector(WithTransport(func(context.Context) (mcp.Transport, error) {
		return nil, errors.New("dial tcp: connection refused")
	}))
	if err != nil {
		t.Fatalf("new connector: %v", err)
	}

	_, err = NewLookup(conn).Lookup(context.Background(), "ui://crm/table_response")
	if !errors.Is(err, resolver.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}

	if _, err := NewConnector(); err == nil {
		t.Fatalf("expected error without endpoint or transport")
	}
}

func TestReadUI(t *testing.T) {
	lookup := NewLookup(newTestConnector(t, newTestServer(t)))

	html, err := lookup.ReadUI(context.Background(), "ui://app/home")
	if err != nil {
		t.Fatalf("read ui: %v", err)
	}
	if html != "<main>Home</main>" {
		t.Fatalf("unexpected html %q", html)
	}

	if _, err := lookup.ReadUI(context.Background(), "file:///etc/passwd"); !errors.Is(err, ErrInvalidURI) {
		t.Fatalf("expected ErrInvalidURI, got %v", err)
	}
}

func TestInvoker(t *testing.T) {
	invoker := NewInvoker(newTestConnector(t, newTestServer(t)))
	ctx := context.Background()

	got, err := invoker.Invoke(ctx, "crm", "who")
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	want := map[string]any{
		"response_type": "table_response",
		"headers":       []any{"Prompt"},
		"rows":          []any{[]any{"who"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	got, err = invoker.Invoke(ctx, "echo", "hi")
	if err != nil {
		t.Fatalf("invoke echo: %v", err)
	}
	if got != "you said hi" {
		t.Fatalf("unexpected echo payload %#v", got)
	}

	if _, err := invoker.Invoke(ctx, "failing", "hi"); err == nil || !strings.Contains(err.Error(), "agent crashed") {
		t.Fatalf("expected tool failure, got %v", err)
	}
}

func TestFromToolResult(t *testing.T) {
	cases := map[string]struct {
		in   *mcp.CallToolResult
		want any
	}{
		"nil":        {in: nil, want: NoResponse},
		"empty":      {in: &mcp.CallToolResult{}, want: NoResponse},
		"text":       {in: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "hello"}}}, want: "hello"},
		"json text":  {in: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: `{"a":1}`}}}, want: map[string]any{"a": json.Number("1")}},
		"structured": {in: &mcp.CallToolResult{StructuredContent: map[string]any{"b": true}}, want: map[string]any{"b": true}},
		"skips blank": {in: &mcp.CallToolResult{Content: []mcp.Content{
			&mcp.TextContent{Text: " "},
			&mcp.TextContent{Text: "second"},
		}}, want: "second"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, FromToolResult(tc.in)); diff != "" {
				t.Fatalf("payload mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolverWithMCPLookup(t *testing.T) {
	lookup := NewLookup(newTestConnector(t, newTestServer(t)))
	r, err := resolver.New(resolver.WithLookup(lookup))
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	ctx := context.Background()

	table, err := r.Render(ctx, resolver.NewRequest("crm", map[string]any{
		"response_type": "table_response",
		"headers":       []any{"A", "B"},
	}, ""))
	if err != nil {
		t.Fatalf("render table: %v", err)
	}
	if table.Stage != resolver.StageAgent || table.HTML != `<table class="crm">A,B</table>` {
		t.Fatalf("unexpected table result %+v", table)
	}

	chat, err := r.Render(ctx, resolver.NewRequest("crm", "hello", ""))
	if err != nil {
		t.Fatalf("render chat: %v", err)
	}
	if chat.Stage != resolver.StageApp || chat.HTML != `<p class="app">hello</p>` {
		t.Fatalf("unexpected chat result %+v", chat)
	}
}
