package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/lgsf/teamhub/internal/app/system/htmlsanitize"
)

func TestSanitize_PassesThroughSafeContent(t *testing.T) {
	cases := []string{
		"",
		"Deploy finished",
		"<p><strong>Build 42</strong> is live</p>",
		"<ul><li>api</li><li>worker</li></ul>",
		"<u>underline</u> <s>strike</s> <mark>mark</mark>",
	}
	for _, in := range cases {
		if got := htmlsanitize.Sanitize(in); got != in {
			t.Errorf("Sanitize(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestSanitize_StripsActiveContent(t *testing.T) {
	cases := []struct {
		name  string
		in    string
		gone  string
		keeps string
	}{
		{"script", "<p>ok</p><script>alert(1)</script>", "<script", "ok"},
		{"iframe", `<p>ok</p><iframe src="https://evil.example"></iframe>`, "iframe", "ok"},
		{"onclick", `<span onclick="alert(1)">maint window</span>`, "onclick", "maint window"},
		{"js href", `<a href="javascript:alert(1)">status page</a>`, "javascript:", "status page"},
		{"form", `<form action="/x"><input name="q"></form>done`, "<form", "done"},
	}
	for _, tc := range cases {
		got := htmlsanitize.Sanitize(tc.in)
		if strings.Contains(got, tc.gone) {
			t.Errorf("%s: %q still present in %q", tc.name, tc.gone, got)
		}
		if !strings.Contains(got, tc.keeps) {
			t.Errorf("%s: lost text %q in %q", tc.name, tc.keeps, got)
		}
	}
}

func TestSanitize_KeepsSafeLinks(t *testing.T) {
	got := htmlsanitize.Sanitize(`<a href="https://status.example.com">status</a>`)
	if !strings.Contains(got, "https://status.example.com") {
		t.Errorf("safe link dropped: %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"", true},
		{"Deploy finished", true},
		{"5 < 10", true},
		{"5 > 3", true},
		{"<p>hi</p>", false},
	}
	for _, tc := range cases {
		if got := htmlsanitize.IsPlainText(tc.in); got != tc.want {
			t.Errorf("IsPlainText(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
