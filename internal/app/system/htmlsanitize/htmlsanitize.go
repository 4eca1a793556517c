// Package htmlsanitize strips markup from free-text catalog fields.
//
// Book names, authors and categories are plain text. Anything that looks
// like HTML is removed before the value reaches the database, so a browser
// client that renders these fields never sees script.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictOnce sync.Once
	strict     *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// PlainText removes all tags (and the bodies of script/style elements) and
// returns unescaped text, so "Tom & Jerry" round-trips unchanged.
func PlainText(s string) string {
	if s == "" || IsPlainText(s) {
		return s
	}
	return html.UnescapeString(policy().Sanitize(s))
}

// IsPlainText reports whether s contains no tag-like sequences.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<")
}
