package testsupport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-treads/pkg/resolver"
	"github.com/goliatone/go-treads/pkg/response"
	"github.com/goliatone/go-treads/pkg/templates"
)

// MustLoadPayload reads a JSON fixture into a generic value, the same shape an
// agent response has after decoding.
func MustLoadPayload(t *testing.T, path string) any {
	t.Helper()

	payload, err := LoadPayload(path)
	if err != nil {
		t.Fatalf("load payload: %v", err)
	}
	return payload
}

// LoadPayload returns a decoded JSON fixture without requiring testing.T so
// callers can wire fixtures in setup functions. Decoding matches
// response.Decode, so numbers keep their literal digits.
func LoadPayload(path string) (any, error) {
	if path == "" {
		return nil, errors.New("testsupport: payload path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("testsupport: read payload: %w", err)
	}
	out, err := response.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("testsupport: %w", err)
	}
	return out, nil
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents. Tests can assert
// the renderer returns and writes the same payload without duplicating buffer
// setup.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}

// FixedClock returns a clock function that always reports at.
func FixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

// StaticLookup is an in-memory template source keyed by URI. Missing URIs
// report resolver.ErrNotFound; entries in Errors are returned as-is and
// entries in Delay block until the delay passes or the context ends. Calls
// are recorded so tests can assert which scopes were consulted.
type StaticLookup struct {
	Templates map[string]string
	Errors    map[string]error
	Delay     map[string]time.Duration

	mu    sync.Mutex
	calls []string
}

var _ resolver.Lookup = (*StaticLookup)(nil)

// Lookup satisfies resolver.Lookup.
func (s *StaticLookup) Lookup(ctx context.Context, uri string) (resolver.Source, error) {
	s.mu.Lock()
	s.calls = append(s.calls, uri)
	s.mu.Unlock()

	if delay := s.Delay[uri]; delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return resolver.Source{}, ctx.Err()
		case <-timer.C:
		}
	}

	if err, ok := s.Errors[uri]; ok {
		return resolver.Source{}, err
	}
	if body, ok := s.Templates[uri]; ok {
		return resolver.Source{URI: uri, MIMEType: "text/html", Body: body}, nil
	}
	return resolver.Source{}, fmt.Errorf("testsupport: %s: %w", uri, resolver.ErrNotFound)
}

// Calls returns the URIs looked up so far, in order.
func (s *StaticLookup) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

// MustRegistry builds a built-in template registry from bodies keyed by
// response type. The "generic" key supplies the catch-all.
func MustRegistry(t *testing.T, bodies map[string]string) *templates.Registry {
	t.Helper()

	fsys := fstest.MapFS{}
	for name, body := range bodies {
		fsys[name+templates.Extension] = &fstest.MapFile{Data: []byte(body)}
	}
	reg, err := templates.New(fsys)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}
