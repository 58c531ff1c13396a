package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"
)

// Extension is the file suffix of built-in template bodies.
const Extension = ".tmpl"

// GenericName is the file stem of the catch-all template.
const GenericName = "generic"

// Registry maps response types to built-in template bodies. It is populated
// once by New and never mutated afterwards, so lookups need no locking.
type Registry struct {
	fsys    fs.FS
	bodies  map[string]string
	generic string
}

// New builds a registry from every *.tmpl file at the root of fsys. The file
// stem is the response type; generic.tmpl is required and becomes the
// catch-all.
func New(fsys fs.FS) (*Registry, error) {
	if fsys == nil {
		return nil, errors.New("templates: filesystem is required")
	}

	matches, err := fs.Glob(fsys, "*"+Extension)
	if err != nil {
		return nil, fmt.Errorf("templates: list templates: %w", err)
	}

	reg := &Registry{fsys: fsys, bodies: make(map[string]string, len(matches))}
	for _, name := range matches {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("templates: read %q: %w", name, err)
		}
		stem := strings.TrimSuffix(path.Base(name), Extension)
		if stem == GenericName {
			reg.generic = string(data)
			continue
		}
		reg.bodies[stem] = string(data)
	}

	if strings.TrimSpace(reg.generic) == "" {
		return nil, fmt.Errorf("templates: %s%s is required", GenericName, Extension)
	}
	return reg, nil
}

// MustNew panics if the registry cannot be built. Useful for init-time wiring.
func MustNew(fsys fs.FS) *Registry {
	reg, err := New(fsys)
	if err != nil {
		panic(err)
	}
	return reg
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry built from the embedded bundle.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = MustNew(FS())
	})
	return defaultRegistry
}

// Lookup returns the built-in body for responseType.
func (r *Registry) Lookup(responseType string) (string, bool) {
	if r == nil {
		return "", false
	}
	body, ok := r.bodies[responseType]
	return body, ok
}

// FS returns the filesystem the registry was built from. Template engines
// load built-ins from it by file name.
func (r *Registry) FS() fs.FS {
	if r == nil {
		return nil
	}
	return r.fsys
}

// FileName returns the file that holds the template for name, a response
// type or GenericName.
func FileName(name string) string {
	return name + Extension
}

// Generic returns the catch-all body.
func (r *Registry) Generic() string {
	if r == nil {
		return ""
	}
	return r.generic
}

// Has reports whether a built-in exists for responseType.
func (r *Registry) Has(responseType string) bool {
	_, ok := r.Lookup(responseType)
	return ok
}

// Names returns the sorted response types with a built-in body.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.bodies))
	for name := range r.bodies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
