// Package sanitize cleans rendered template output before it is appended to a
// chat transcript.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// SafeStyles are the inline CSS properties templates may set.
var SafeStyles = []string{
	"color", "background-color",
	"text-align", "font-weight", "font-style",
}

var (
	fragmentPolicyOnce sync.Once
	fragmentPolicy     *bluemonday.Policy
)

// Fragment strips document wrappers, scripts, style sheets and event handlers
// from rendered markup while keeping the layout and accessibility attributes
// chat templates rely on. Inline style attributes keep only the properties in
// SafeStyles, with values checked by bluemonday's CSS handlers. Surrounding
// whitespace is trimmed.
func Fragment(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(Policy().Sanitize(trimmed))
}

// Policy returns the shared fragment policy. The policy is built once and
// must not be modified by callers.
func Policy() *bluemonday.Policy {
	fragmentPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()

		policy.AllowAttrs("class", "id", "role").Globally()
		policy.AllowAttrs(
			"aria-label", "aria-hidden", "aria-live", "aria-describedby",
			"aria-labelledby", "aria-expanded",
		).Globally()
		policy.AllowDataAttributes()

		policy.AllowAttrs("loading").Matching(bluemonday.Paragraph).OnElements("img")
		policy.AllowAttrs("scope", "colspan", "rowspan").OnElements("th", "td")
		policy.AllowElements("figure", "figcaption", "section", "article", "small")
		policy.AllowStyles(SafeStyles...).Globally()

		fragmentPolicy = policy
	})
	return fragmentPolicy
}
