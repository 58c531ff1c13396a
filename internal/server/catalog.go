package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/pkg/resolver"
)

// ResourceTemplatesType is the response type used to render the data
// template listing, so ui://app/resource_templates can style it.
const ResourceTemplatesType = "resource_templates"

type resourceMessagesRequest struct {
	URI          string `json:"uri"`
	Instructions string `json:"instructions"`
}

func (s *Server) listResources(c *gin.Context) {
	serveList(s, c, "resources", Catalog.Resources)
}

func (s *Server) listResourceTemplates(c *gin.Context) {
	serveList(s, c, "templates", Catalog.ResourceTemplates)
}

func (s *Server) listTools(c *gin.Context) {
	serveList(s, c, "tools", Catalog.Tools)
}

func (s *Server) listPrompts(c *gin.Context) {
	serveList(s, c, "prompts", Catalog.Prompts)
}

func serveList[T any](s *Server, c *gin.Context, key string, list func(Catalog, context.Context) ([]T, error)) {
	if s.deps.Catalog == nil {
		abortJSON(c, http.StatusServiceUnavailable, "mcp catalog is not configured")
		return
	}
	items, err := list(s.deps.Catalog, c.Request.Context())
	if err != nil {
		requestLogger(c, s.logger).Error("mcp list failed", zap.String("list", key), zap.Error(err))
		_ = c.Error(err)
		abortJSON(c, http.StatusBadGateway, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{key: items})
}

// dataTemplates lists resource templates outside ui://. HTML clients get
// the list rendered through the resolver chain for ResourceTemplatesType.
func (s *Server) dataTemplates(c *gin.Context) {
	if s.deps.Catalog == nil {
		abortJSON(c, http.StatusServiceUnavailable, "mcp catalog is not configured")
		return
	}
	ctx := c.Request.Context()
	templates, err := s.deps.Catalog.DataTemplates(ctx)
	if err != nil {
		requestLogger(c, s.logger).Error("listing resource templates failed", zap.Error(err))
		_ = c.Error(err)
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "templates": []any{}})
			return
		}
		result := s.deps.Resolver.RenderError(ctx, resolver.AppScope, "", errors.New("resource templates are unavailable"))
		c.Data(http.StatusOK, htmlContentType, []byte(result.HTML))
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "templates": templates})
		return
	}
	result := s.deps.Resolver.Respond(ctx, resolver.Request{
		Agent:        resolver.AppScope,
		ResponseType: ResourceTemplatesType,
		Data:         templates,
	})
	c.Data(http.StatusOK, htmlContentType, []byte(result.HTML))
}

// promptMessages renders an MCP prompt and answers with the text of its
// first message, escaped for HTML clients.
func (s *Server) promptMessages(c *gin.Context) {
	if s.deps.Catalog == nil {
		abortJSON(c, http.StatusServiceUnavailable, "mcp catalog is not configured")
		return
	}
	name := c.Param("name")

	raw, err := c.GetRawData()
	var args map[string]string
	if err == nil {
		args, err = promptArguments(raw)
	}
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "request body must be a JSON object")
		return
	}

	text, err := s.deps.Catalog.PromptText(c.Request.Context(), name, args)
	if err != nil {
		requestLogger(c, s.logger).Error("prompt fetch failed", zap.String("prompt", name), zap.Error(err))
		_ = c.Error(err)
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "prompt_name": name, "arguments": args})
			return
		}
		abortJSON(c, http.StatusBadGateway, err.Error())
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "content": text, "prompt_name": name, "arguments": args})
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html.EscapeString(text)))
}

// resourceMessages reads a resource and frames it as a chat prompt with the
// caller's instructions.
func (s *Server) resourceMessages(c *gin.Context) {
	if s.deps.Catalog == nil {
		abortJSON(c, http.StatusServiceUnavailable, "mcp catalog is not configured")
		return
	}
	ctx := c.Request.Context()

	var body resourceMessagesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		abortJSON(c, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	uri := strings.TrimSpace(body.URI)
	if uri == "" {
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": "Missing required parameter: uri", "uri": nil})
			return
		}
		result := s.deps.Resolver.RenderError(ctx, resolver.AppScope, "", errors.New("missing required parameter: uri"))
		c.Data(http.StatusOK, htmlContentType, []byte(result.HTML))
		return
	}

	prompt, err := s.deps.Catalog.ResourcePrompt(ctx, uri, body.Instructions)
	if err != nil {
		requestLogger(c, s.logger).Error("resource prompt failed", zap.String("uri", uri), zap.Error(err))
		_ = c.Error(err)
		if wantsJSON(c) {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error(), "uri": uri, "instructions": body.Instructions})
			return
		}
		cause := fmt.Errorf("could not retrieve resource %s", uri)
		if errors.Is(err, resolver.ErrNotFound) {
			cause = fmt.Errorf("resource %s was not found", uri)
		}
		result := s.deps.Resolver.RenderError(ctx, resolver.AppScope, "", cause)
		c.Data(http.StatusOK, htmlContentType, []byte(result.HTML))
		return
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"success": true, "content": prompt, "uri": uri, "instructions": body.Instructions})
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(html.EscapeString(prompt)))
}

// promptArguments reads prompt arguments from params.arguments, arguments,
// or the body itself. Non-string values keep their JSON text.
func promptArguments(raw []byte) (map[string]string, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return map[string]string{}, nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	args, ok := body["arguments"]
	if params, found := body["params"]; found {
		var nested map[string]json.RawMessage
		if json.Unmarshal(params, &nested) == nil {
			if inner, found := nested["arguments"]; found {
				args, ok = inner, true
			}
		}
	}
	if !ok {
		return stringArguments(body), nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(args, &fields); err != nil {
		return nil, err
	}
	return stringArguments(fields), nil
}

func stringArguments(fields map[string]json.RawMessage) map[string]string {
	out := make(map[string]string, len(fields))
	for key, value := range fields {
		var text string
		if json.Unmarshal(value, &text) == nil {
			out[key] = text
			continue
		}
		out[key] = string(value)
	}
	return out
}
