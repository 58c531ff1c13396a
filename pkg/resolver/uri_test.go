package resolver

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTemplateRef_URI(t *testing.T) {
	cases := map[string]struct {
		ref  TemplateRef
		want string
	}{
		"plain":   {ref: TemplateRef{Scope: "crm", ResponseType: "table_response"}, want: "ui://crm/table_response"},
		"app":     {ref: TemplateRef{Scope: AppScope, ResponseType: "chat_response"}, want: "ui://app/chat_response"},
		"escaped": {ref: TemplateRef{Scope: "a b", ResponseType: "x/y"}, want: "ui://a%20b/x%2Fy"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := tc.ref.URI(); got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestParseURI(t *testing.T) {
	ref, err := ParseURI("ui://crm/table_response")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff(TemplateRef{Scope: "crm", ResponseType: "table_response"}, ref); diff != "" {
		t.Fatalf("ref mismatch (-want +got):\n%s", diff)
	}

	for _, raw := range []string{"http://crm/table", "ui://crm", "ui:///table", "ui://crm/a/b", "::"} {
		if _, err := ParseURI(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestChain(t *testing.T) {
	got := Chain("crm", "list_response")
	want := []TemplateRef{
		{Scope: "crm", ResponseType: "list_response"},
		{Scope: AppScope, ResponseType: "list_response"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("chain mismatch (-want +got):\n%s", diff)
	}

	for _, agent := range []string{"app", ""} {
		if got := Chain(agent, "chat_response"); len(got) != 1 || got[0].Scope != AppScope {
			t.Fatalf("agent %q: expected single app lookup, got %v", agent, got)
		}
	}
}

func TestIsUIURI(t *testing.T) {
	if !IsUIURI(" ui://app/page") || IsUIURI("file://x") || IsUIURI("") {
		t.Fatalf("unexpected IsUIURI results")
	}
}
