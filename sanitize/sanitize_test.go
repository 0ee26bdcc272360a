package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizer_Strip(t *testing.T) {
	req := require.New(t)
	s := NewSanitizer()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain text untouched", "hello there", "hello there"},
		{"Simple tag removed", "<b>hello</b>", "hello"},
		{"Nested tags removed", "<div><span>hi</span> all</div>", "hi all"},
		{"Script content kept as text only", "before<script>x</script>after", "beforexafter"},
		{"Command sigil survives stripping", "<i>/who</i>", "/who"},
		{"Empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.expected, s.Strip(tt.input))
		})
	}
}

func TestSanitizer_Linkify(t *testing.T) {
	req := require.New(t)
	s := NewSanitizer()

	req.Equal(
		`see <a href="https://example.com/x" target="_blank">https://example.com/x</a> now`,
		s.Linkify("see https://example.com/x now"),
	)
	req.Equal(
		`go to <a href="http://example.com" target="_blank">example.com</a>`,
		s.Linkify("go to example.com"),
	)
	req.Equal("no links here", s.Linkify("no links here"))
}
