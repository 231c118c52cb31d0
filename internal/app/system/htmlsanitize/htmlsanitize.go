// internal/app/system/htmlsanitize/htmlsanitize.go

// Package htmlsanitize cleans user-authored rich text before it is stored.
// Notification titles and messages and group names pass through here so a
// staff-supplied payload can carry basic formatting but never script.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the shared sanitizer: bluemonday's user-generated-content
// baseline plus a few formatting elements rich-text clients emit.
var policy = buildPolicy()

func buildPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("u", "s", "sub", "sup", "mark")
	p.AllowAttrs("class").OnElements("table", "thead", "tbody", "tr", "th", "td", "p", "span", "div")
	return p
}

// Sanitize strips unsafe markup, keeping the allowed formatting subset.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}

// IsPlainText reports whether s carries no HTML markup. A string needs both
// an opening and a closing angle bracket to count as markup, so prose like
// "5 < 10" stays plain.
func IsPlainText(s string) bool {
	return !(strings.Contains(s, "<") && strings.Contains(s, ">"))
}
