package template

import (
	"io"
)

// TemplateRenderer is the seam the resolver renders through. RenderTemplate
// loads a named template from the renderer's own source; RenderString always
// treats its argument as template source.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
}
