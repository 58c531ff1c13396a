// Package response classifies agent payloads before rendering.
//
// Agents answer with arbitrary JSON. Objects may carry a response_type tag
// that selects the template used to render them; the tag is stripped from the
// data handed to templates. Anything else (plain text, arrays, objects without
// a tag) renders as a chat_response.
package response
