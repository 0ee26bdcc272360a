// Package sanitize removes markup from user-supplied text prior to storage
// and renders URLs as anchors for display.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"mvdan.cc/xurls/v2"
)

// Sanitizer strips tags with an HTML tokenizer and linkifies plain text.
// Safe for concurrent use.
type Sanitizer struct {
	urls *regexp.Regexp
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{urls: xurls.Relaxed()}
}

// Strip removes every HTML tag from raw and returns the concatenated text
// content. Text without markup passes through unchanged.
func (s *Sanitizer) Strip(raw string) string {
	if !strings.ContainsRune(raw, '<') {
		return raw
	}
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(raw))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

// Linkify wraps every detected URL in an anchor. URLs without a scheme are
// linked as http.
func (s *Sanitizer) Linkify(plain string) string {
	return s.urls.ReplaceAllStringFunc(plain, func(match string) string {
		href := match
		if !strings.Contains(href, "://") {
			href = "http://" + href
		}
		return `<a href="` + href + `" target="_blank">` + match + `</a>`
	})
}
