// Package template defines the renderer-agnostic template contract used by the
// response resolver. The gotemplate sub-package provides the pongo2 adapter.
package template
