package response

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TypeKey is the payload field agents use to pick a response template.
const TypeKey = "response_type"

// Built-in response types.
const (
	ChatResponse  = "chat_response"
	TableResponse = "table_response"
	CodeResponse  = "code_response"
	ListResponse  = "list_response"
	ErrorResponse = "error_response"
	JSONResponse  = "json_response"
	ImageResponse = "image_response"
)

// DefaultType is used when a payload does not declare a response type.
const DefaultType = ChatResponse

// Payload is a decoded agent response object.
type Payload = map[string]any

// Classification is the outcome of Classify: the response type that selects
// the template and the data exposed to it as "response".
type Classification struct {
	Type string
	Data any
}

// Classify extracts the response type from payload. Objects carrying a string
// response_type yield that type and a copy of the object without the key;
// everything else yields DefaultType with the payload passed through. The
// input is never mutated.
func Classify(payload any) Classification {
	obj, ok := payload.(map[string]any)
	if !ok {
		return Classification{Type: DefaultType, Data: payload}
	}

	raw, tagged := obj[TypeKey]
	if !tagged {
		return Classification{Type: DefaultType, Data: obj}
	}

	data := make(map[string]any, len(obj))
	for key, value := range obj {
		if key == TypeKey {
			continue
		}
		data[key] = value
	}

	responseType := DefaultType
	if name, ok := raw.(string); ok && strings.TrimSpace(name) != "" {
		responseType = strings.TrimSpace(name)
	}
	return Classification{Type: responseType, Data: data}
}

// ErrorPayload builds the payload used to render a failure through the
// error_response template.
func ErrorPayload(description string) Payload {
	return Payload{
		TypeKey: ErrorResponse,
		"error": description,
	}
}

// ErrEmptyPayload reports a request body with no JSON content.
var ErrEmptyPayload = errors.New("response: payload is empty")

// Decode parses a raw JSON document into a generic value. Numbers are kept
// as json.Number so templates print the digits the agent sent. Callers
// coerce a decode failure into ErrorPayload before rendering.
func Decode(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ErrEmptyPayload
	}

	var out any
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("response: decode payload: %w", err)
	}
	if dec.More() {
		return nil, errors.New("response: decode payload: trailing data after JSON value")
	}
	return out, nil
}

// FromText interprets agent output text. A JSON object or array is returned as
// structured data so templates can walk it; any other text, including JSON
// scalars, is returned unchanged.
func FromText(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return text
	}

	parsed, err := Decode([]byte(trimmed))
	if err != nil {
		return text
	}
	switch parsed.(type) {
	case map[string]any, []any:
		return parsed
	default:
		return text
	}
}
