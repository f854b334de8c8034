package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	contentPolicy = bluemonday.UGCPolicy()
	textPolicy    = bluemonday.StrictPolicy()
)

// SanitizeContent keeps the markup users may post (links, emphasis, code)
// and drops scripts, handlers and styles.
func SanitizeContent(s string) string {
	return strings.TrimSpace(contentPolicy.Sanitize(s))
}

// StripTags removes every tag, for titles and names.
func StripTags(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}
