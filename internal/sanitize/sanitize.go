// Package sanitize strips dangerous markup from content written in the admin
// panel before it is sent to the village API. News bodies come from a rich
// text editor; everything else is plain text.
package sanitize

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  *bluemonday.Policy
	plainPolicy *bluemonday.Policy
	policyOnce  sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		richPolicy = bluemonday.UGCPolicy()

		// Editor output uses classes for alignment and inline colour spans.
		richPolicy.AllowAttrs("class").Globally()
		richPolicy.AllowAttrs("style").OnElements("span", "p", "div", "td", "th")

		richPolicy.AllowElements("table", "thead", "tbody", "tfoot", "tr", "td", "th", "caption")
		richPolicy.AllowAttrs("colspan", "rowspan").OnElements("td", "th")

		// Embedded maps and videos are added by the portal templates,
		// never by authors.
		plainPolicy = bluemonday.StrictPolicy()
	})
	return richPolicy, plainPolicy
}

// HTML removes scripts, event handlers, iframes and javascript: URLs while
// keeping formatting tags. Call it on every news body before submission.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	rich, _ := policies()
	return rich.Sanitize(input)
}

// Text strips all markup and surrounding whitespace. Used for titles, names
// and other single-line fields.
func Text(input string) string {
	if input == "" {
		return ""
	}
	_, plain := policies()
	return strings.TrimSpace(plain.Sanitize(input))
}
