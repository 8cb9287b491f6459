package cleaner

import "testing"

func TestClean(t *testing.T) {
	c := NewCleaner()
	got := c.Clean(`<p>Hello <script>alert(1)</script><b>world</b></p>`)
	want := `<p>Hello <b>world</b></p>`
	if got != want {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
}

func TestCleanStripsJavascriptLinks(t *testing.T) {
	c := NewCleaner()
	got := c.Clean(`<a href="javascript:alert(1)">click</a>`)
	if got != "click" {
		t.Errorf("Clean() = %q, want %q", got, "click")
	}
	got = c.Clean(`<a href="https://example.com">click</a>`)
	if got != `<a href="https://example.com">click</a>` {
		t.Errorf("Clean() = %q", got)
	}
}

func TestCleanToText(t *testing.T) {
	c := NewStrictCleaner()
	tests := []struct {
		in   string
		want string
	}{
		{"<p>Build <b>services</b>.</p>", "Build services."},
		{"&lt;p&gt;Escaped &lt;b&gt;markup&lt;/b&gt;.&lt;/p&gt;", "Escaped markup."},
		{"Tools &amp; Infrastructure", "Tools & Infrastructure"},
		{"  plain text  ", "plain text"},
	}
	for _, tt := range tests {
		if got := c.CleanToText(tt.in); got != tt.want {
			t.Errorf("CleanToText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
