package feed

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

var (
	strictPolicy   = bluemonday.StrictPolicy()
	blankLines     = regexp.MustCompile(`\n{3,}`)
	horizontalRuns = regexp.MustCompile(`[ \t\p{Zs}]+`)
)

// PlainText flattens feed HTML into NFC-normalized text with collapsed whitespace.
func PlainText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}

	text, err := html2text.FromString(content, html2text.Options{OmitLinks: true})
	if err != nil {
		text = strictPolicy.Sanitize(content)
	}
	text = html.UnescapeString(text)
	text = norm.NFC.String(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalRuns.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}

	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
