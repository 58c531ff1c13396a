package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/goliatone/go-treads/pkg/mcpui"
	"github.com/goliatone/go-treads/pkg/resolver"
	"github.com/goliatone/go-treads/pkg/response"
)

const htmlContentType = "text/html; charset=utf-8"

// invokeRequest accepts either {"prompt": ...} or a tools/call envelope.
type invokeRequest struct {
	Prompt string `json:"prompt"`
	Method string `json:"method"`
	Params struct {
		Name      string `json:"name"`
		Arguments struct {
			Prompt string `json:"prompt"`
		} `json:"arguments"`
	} `json:"params"`
}

func (r invokeRequest) prompt() string {
	if prompt := strings.TrimSpace(r.Prompt); prompt != "" {
		return prompt
	}
	return strings.TrimSpace(r.Params.Arguments.Prompt)
}

type uiRequest struct {
	URI string `json:"uri"`
}

// renderResponse is the JSON shape returned when the client accepts JSON.
type renderResponse struct {
	Success  bool   `json:"success"`
	Response any    `json:"response"`
	Prompt   string `json:"prompt"`
	Agent    string `json:"agent"`
	HTML     string `json:"html"`
}

func (s *Server) invoke(c *gin.Context) {
	if s.deps.Invoker == nil {
		abortJSON(c, http.StatusServiceUnavailable, "agent invocation is not configured")
		return
	}

	var body invokeRequest
	raw, err := c.GetRawData()
	if err == nil {
		err = json.Unmarshal(raw, &body)
	}
	if err != nil {
		abortJSON(c, http.StatusBadRequest, "request body must be a JSON object")
		return
	}
	prompt := body.prompt()
	if prompt == "" {
		abortJSON(c, http.StatusBadRequest, "prompt is required")
		return
	}

	agent := c.Param("agent")
	ctx := c.Request.Context()
	logger := requestLogger(c, s.logger).With(zap.String("agent", agent))

	payload, err := s.deps.Invoker.Invoke(ctx, agent, prompt)
	if err != nil {
		logger.Error("agent invocation failed", zap.Error(err))
		_ = c.Error(err)
		result := s.deps.Resolver.RenderError(ctx, agent, prompt, invocationFailure(agent, err))
		s.write(c, renderResponse{
			Success:  false,
			Response: response.ErrorPayload(resolver.Describe(invocationFailure(agent, err))),
			Prompt:   prompt,
			Agent:    agent,
			HTML:     result.HTML,
		})
		return
	}

	result := s.deps.Resolver.Respond(ctx, resolver.NewRequest(agent, payload, prompt))
	s.write(c, renderResponse{
		Success:  true,
		Response: payload,
		Prompt:   prompt,
		Agent:    agent,
		HTML:     result.HTML,
	})
}

func (s *Server) render(c *gin.Context) {
	agent := c.Param("agent")
	prompt := c.Query("prompt")

	success := true
	raw, err := c.GetRawData()
	var payload any
	if err == nil {
		payload, err = response.Decode(raw)
	}
	if err != nil {
		requestLogger(c, s.logger).Debug("malformed agent payload", zap.String("agent", agent), zap.Error(err))
		payload = response.ErrorPayload("The agent response could not be parsed")
		success = false
	}

	result := s.deps.Resolver.Respond(c.Request.Context(), resolver.NewRequest(agent, payload, prompt))
	s.write(c, renderResponse{
		Success:  success,
		Response: payload,
		Prompt:   prompt,
		Agent:    agent,
		HTML:     result.HTML,
	})
}

func (s *Server) readUI(c *gin.Context) {
	if s.deps.UI == nil {
		abortJSON(c, http.StatusServiceUnavailable, "ui resources are not configured")
		return
	}

	var body uiRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.URI) == "" {
		abortJSON(c, http.StatusBadRequest, "uri is required")
		return
	}
	uri := strings.TrimSpace(body.URI)
	if !resolver.IsUIURI(uri) {
		abortJSON(c, http.StatusBadRequest, "uri must start with ui://")
		return
	}

	markup, err := s.deps.UI.ReadUI(c.Request.Context(), uri)
	switch {
	case err == nil:
		c.Data(http.StatusOK, htmlContentType, []byte(markup))
	case errors.Is(err, mcpui.ErrInvalidURI):
		abortJSON(c, http.StatusBadRequest, "uri must start with ui://")
	case errors.Is(err, resolver.ErrNotFound):
		abortJSON(c, http.StatusNotFound, fmt.Sprintf("resource %s not found", uri))
	default:
		requestLogger(c, s.logger).Error("ui resource read failed", zap.String("uri", uri), zap.Error(err))
		_ = c.Error(err)
		abortJSON(c, http.StatusBadGateway, "failed to read ui resource")
	}
}

// write answers with JSON when the client accepts it and with the fragment
// otherwise.
func (s *Server) write(c *gin.Context, out renderResponse) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, out)
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(out.HTML))
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

func abortJSON(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// invocationFailure hides transport detail from the fragment. Context
// errors pass through so they read as cancelled or timed out.
func invocationFailure(agent string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("agent %s did not return a response", agent)
}
