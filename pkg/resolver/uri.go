package resolver

import (
	"fmt"
	"net/url"
	"strings"
)

// Scheme is the URI scheme of UI template resources.
const Scheme = "ui"

// AppScope is the scope shared by every agent.
const AppScope = "app"

// TemplateRef identifies a template resource by scope and response type.
type TemplateRef struct {
	Scope        string
	ResponseType string
}

// URI formats the reference as ui://{scope}/{response_type}.
func (r TemplateRef) URI() string {
	return fmt.Sprintf("%s://%s/%s", Scheme, url.PathEscape(r.Scope), url.PathEscape(r.ResponseType))
}

func (r TemplateRef) String() string {
	return r.URI()
}

// ParseURI parses a ui://{scope}/{response_type} URI.
func ParseURI(raw string) (TemplateRef, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return TemplateRef{}, fmt.Errorf("resolver: parse uri %q: %w", raw, err)
	}
	if u.Scheme != Scheme {
		return TemplateRef{}, fmt.Errorf("resolver: uri %q must use the %s:// scheme", raw, Scheme)
	}
	responseType := strings.Trim(u.Path, "/")
	if u.Host == "" || responseType == "" || strings.Contains(responseType, "/") {
		return TemplateRef{}, fmt.Errorf("resolver: uri %q must look like %s://{scope}/{response_type}", raw, Scheme)
	}
	return TemplateRef{Scope: u.Host, ResponseType: responseType}, nil
}

// IsUIURI reports whether raw uses the ui:// scheme.
func IsUIURI(raw string) bool {
	return strings.HasPrefix(strings.TrimSpace(raw), Scheme+"://")
}

// Chain returns the lookup references for agent and responseType in fallback
// order. The app scope is not repeated when agent is the app itself.
func Chain(agent, responseType string) []TemplateRef {
	agent = normalizeAgent(agent)
	refs := []TemplateRef{{Scope: agent, ResponseType: responseType}}
	if agent != AppScope {
		refs = append(refs, TemplateRef{Scope: AppScope, ResponseType: responseType})
	}
	return refs
}

func normalizeAgent(agent string) string {
	agent = strings.TrimSpace(agent)
	if agent == "" {
		return AppScope
	}
	return agent
}
