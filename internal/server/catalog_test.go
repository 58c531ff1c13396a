package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-treads/pkg/resolver"
	"github.com/goliatone/go-treads/pkg/testsupport"
)

type fakeCatalog struct {
	err error

	promptName string
	promptArgs map[string]string
}

func (f *fakeCatalog) Resources(context.Context) ([]*mcp.Resource, error) {
	return []*mcp.Resource{{URI: "docs://handbook", Name: "handbook"}}, f.err
}

func (f *fakeCatalog) ResourceTemplates(context.Context) ([]*mcp.ResourceTemplate, error) {
	return []*mcp.ResourceTemplate{
		{URITemplate: "docs://reports/{quarter}", Name: "reports"},
		{URITemplate: "ui://widgets/{name}", Name: "widgets"},
	}, f.err
}

func (f *fakeCatalog) DataTemplates(context.Context) ([]*mcp.ResourceTemplate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*mcp.ResourceTemplate{{URITemplate: "docs://reports/{quarter}", Name: "reports"}}, nil
}

func (f *fakeCatalog) Tools(context.Context) ([]*mcp.Tool, error) {
	return []*mcp.Tool{{Name: "crm"}}, f.err
}

func (f *fakeCatalog) Prompts(context.Context) ([]*mcp.Prompt, error) {
	return []*mcp.Prompt{{Name: "summarize"}}, f.err
}

func (f *fakeCatalog) PromptText(_ context.Context, name string, args map[string]string) (string, error) {
	f.promptName = name
	f.promptArgs = args
	if f.err != nil {
		return "", f.err
	}
	return "Summarize <" + args["topic"] + ">", nil
}

func (f *fakeCatalog) ResourcePrompt(_ context.Context, uri, instructions string) (string, error) {
	switch {
	case f.err != nil:
		return "", f.err
	case uri == "docs://missing":
		return "", fmt.Errorf("read %s: %w", uri, resolver.ErrNotFound)
	}
	return "Resource from " + uri + ":\n\nBe kind.\n\nInstructions: " + instructions, nil
}

func decodeJSON(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestCatalog_ListRoutes(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: &fakeCatalog{}})

	cases := map[string]string{
		"/api/resources":          "resources",
		"/api/resource-templates": "templates",
		"/api/tools":              "tools",
		"/api/prompts":            "prompts",
	}
	for target, key := range cases {
		t.Run(target, func(t *testing.T) {
			w := do(t, h, http.MethodGet, target, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			out := decodeJSON(t, w.Body.Bytes())
			assert.NotEmpty(t, out[key])
		})
	}

	out := decodeJSON(t, do(t, h, http.MethodGet, "/api/resource-templates", "", nil).Body.Bytes())
	assert.Len(t, out["templates"], 2)
}

func TestCatalog_ListFailuresAreBadGateway(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: &fakeCatalog{err: errors.New("mcp down")}})

	w := do(t, h, http.MethodGet, "/api/tools", "", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "mcp down")
}

func TestCatalog_NotConfigured(t *testing.T) {
	h := newTestServer(t, Deps{})

	for _, route := range []struct{ method, target string }{
		{http.MethodGet, "/api/resources"},
		{http.MethodGet, "/api/templates"},
		{http.MethodPost, "/api/prompts/summarize/messages"},
		{http.MethodPost, "/api/templates/messages"},
	} {
		w := do(t, h, route.method, route.target, `{}`, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, route.target)
	}
}

func TestDataTemplates(t *testing.T) {
	lookup := &testsupport.StaticLookup{Templates: map[string]string{
		"ui://app/resource_templates": `<ul>{% for t in response %}<li>{{ t.uriTemplate }}</li>{% endfor %}</ul>`,
	}}
	r, err := resolver.New(resolver.WithLookup(lookup))
	require.NoError(t, err)
	h := newTestServer(t, Deps{Resolver: r, Catalog: &fakeCatalog{}})

	w := do(t, h, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `<ul><li>docs://reports/{quarter}</li></ul>`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/templates", "", map[string]string{"Accept": "application/json"})
	out := decodeJSON(t, w.Body.Bytes())
	assert.Equal(t, true, out["success"])
	templates := out["templates"].([]any)
	require.Len(t, templates, 1)
	assert.Equal(t, "docs://reports/{quarter}", templates[0].(map[string]any)["uriTemplate"])
}

func TestDataTemplates_GenericFallbackAndFailure(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: &fakeCatalog{}})
	w := do(t, h, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-response-type="resource_templates"`)
	assert.Contains(t, w.Body.String(), "docs://reports/{quarter}")

	h = newTestServer(t, Deps{Catalog: &fakeCatalog{err: errors.New("mcp down")}})
	w = do(t, h, http.MethodGet, "/api/templates", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `role="alert"`)
	assert.Contains(t, w.Body.String(), "resource templates are unavailable")

	w = do(t, h, http.MethodGet, "/api/templates", "", map[string]string{"Accept": "application/json"})
	out := decodeJSON(t, w.Body.Bytes())
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "mcp down", out["error"])
}

func TestPromptMessages(t *testing.T) {
	catalog := &fakeCatalog{}
	h := newTestServer(t, Deps{Catalog: catalog})

	w := do(t, h, http.MethodPost, "/api/prompts/summarize/messages", `{"arguments":{"topic":"churn","limit":3}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Summarize &lt;churn&gt;", w.Body.String())
	assert.Equal(t, "summarize", catalog.promptName)
	assert.Equal(t, map[string]string{"topic": "churn", "limit": "3"}, catalog.promptArgs)

	w = do(t, h, http.MethodPost, "/api/prompts/summarize/messages",
		`{"method":"prompts/get","params":{"arguments":{"topic":"growth"}}}`,
		map[string]string{"Accept": "application/json"})
	out := decodeJSON(t, w.Body.Bytes())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Summarize <growth>", out["content"])
	assert.Equal(t, "summarize", out["prompt_name"])
	assert.Equal(t, map[string]any{"topic": "growth"}, out["arguments"])

	do(t, h, http.MethodPost, "/api/prompts/summarize/messages", `{"topic":"flat"}`, nil)
	assert.Equal(t, map[string]string{"topic": "flat"}, catalog.promptArgs)
}

func TestPromptMessages_Failure(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: &fakeCatalog{err: errors.New("unknown prompt")}})

	w := do(t, h, http.MethodPost, "/api/prompts/nope/messages", `{}`, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)

	w = do(t, h, http.MethodPost, "/api/prompts/nope/messages", `{}`, map[string]string{"Accept": "application/json"})
	out := decodeJSON(t, w.Body.Bytes())
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "nope", out["prompt_name"])

	w = do(t, h, http.MethodPost, "/api/prompts/nope/messages", `not json`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResourceMessages(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: &fakeCatalog{}})

	w := do(t, h, http.MethodPost, "/api/templates/messages", `{"uri":"docs://handbook","instructions":"Shorten it"}`,
		map[string]string{"Accept": "application/json"})
	require.Equal(t, http.StatusOK, w.Code)
	out := decodeJSON(t, w.Body.Bytes())
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "Resource from docs://handbook:\n\nBe kind.\n\nInstructions: Shorten it", out["content"])
	assert.Equal(t, "docs://handbook", out["uri"])

	w = do(t, h, http.MethodPost, "/api/templates/messages", `{"uri":"docs://handbook"}`, nil)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Resource from docs://handbook:")
}

func TestResourceMessages_Failures(t *testing.T) {
	h := newTestServer(t, Deps{Catalog: &fakeCatalog{}})

	w := do(t, h, http.MethodPost, "/api/templates/messages", `{}`, map[string]string{"Accept": "application/json"})
	out := decodeJSON(t, w.Body.Bytes())
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "Missing required parameter: uri", out["error"])

	w = do(t, h, http.MethodPost, "/api/templates/messages", `{}`, nil)
	assert.Contains(t, w.Body.String(), `role="alert"`)
	assert.Contains(t, w.Body.String(), "missing required parameter: uri")

	w = do(t, h, http.MethodPost, "/api/templates/messages", `{"uri":"docs://missing"}`, nil)
	assert.Contains(t, w.Body.String(), "resource docs://missing was not found")

	h = newTestServer(t, Deps{Catalog: &fakeCatalog{err: errors.New("mcp down")}})
	w = do(t, h, http.MethodPost, "/api/templates/messages", `{"uri":"docs://handbook"}`, nil)
	assert.Contains(t, w.Body.String(), "could not retrieve resource docs://handbook")
	assert.NotContains(t, w.Body.String(), "mcp down")
}
