package resolver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Template variable names. Every template receives exactly these.
const (
	VarResponse          = "response"
	VarResponseFormatted = "response_formatted"
	VarAgent             = "agent"
	VarPrompt            = "prompt"
	VarTimestamp         = "timestamp"
	VarResponseType      = "response_type"
)

// RenderContext is the variable set bound to a template for one render.
type RenderContext struct {
	Response          any
	ResponseFormatted string
	Agent             string
	Prompt            string
	Timestamp         string
	ResponseType      string
}

// NewRenderContext builds the context for a render at now.
func NewRenderContext(agent, responseType string, data any, prompt string, now time.Time) RenderContext {
	return RenderContext{
		Response:          data,
		ResponseFormatted: FormatResponse(data),
		Agent:             agent,
		Prompt:            prompt,
		Timestamp:         now.Format(time.RFC3339),
		ResponseType:      responseType,
	}
}

// Map returns the template variables.
func (c RenderContext) Map() map[string]any {
	return map[string]any{
		VarResponse:          c.Response,
		VarResponseFormatted: c.ResponseFormatted,
		VarAgent:             c.Agent,
		VarPrompt:            c.Prompt,
		VarTimestamp:         c.Timestamp,
		VarResponseType:      c.ResponseType,
	}
}

// FormatResponse renders data for display: objects and arrays as two-space
// indented JSON, strings unchanged, other scalars in their JSON form and nil
// as the empty string.
func FormatResponse(data any) string {
	if data == nil {
		return ""
	}
	if s, ok := data.(string); ok {
		return s
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if structured(data) {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(data); err != nil {
		return fmt.Sprint(data)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func structured(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return true
	default:
		return false
	}
}
