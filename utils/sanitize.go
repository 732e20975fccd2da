package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	plainText     = bluemonday.StrictPolicy()
	angleBrackets = strings.NewReplacer("<", "", ">", "")
)

// PlainText strips all markup from user supplied text such as display names
// and XP award reasons, then trims it to maxRunes. Entities are decoded before
// sanitizing so encoded tags are removed like literal ones.
func PlainText(input string, maxRunes int) string {
	out := plainText.Sanitize(html.UnescapeString(strings.TrimSpace(input)))
	out = angleBrackets.Replace(html.UnescapeString(out))
	out = strings.TrimSpace(out)
	if maxRunes > 0 {
		if r := []rune(out); len(r) > maxRunes {
			out = string(r[:maxRunes])
		}
	}
	return out
}
