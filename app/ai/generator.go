package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/lysyi3m/feedpost/app/feed"
)

// MaxPostLength is the length, in runes, generated posts are clipped to.
const MaxPostLength = 280

var ErrEmptyPost = errors.New("generated post is empty")

type PostInput struct {
	Title   string
	Content string
	URL     string
}

type Generator interface {
	GeneratePost(ctx context.Context, input PostInput) (string, error)
}

// finalize trims wrapping quotes and whitespace and clips to MaxPostLength.
func finalize(text string) (string, error) {
	text = strings.TrimSpace(text)
	for len(text) >= 2 {
		first, last := text[0], text[len(text)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			text = strings.TrimSpace(text[1 : len(text)-1])
			continue
		}
		break
	}
	text = strings.TrimSpace(strings.Trim(text, "“”"))

	if text == "" {
		return "", ErrEmptyPost
	}
	return strings.TrimSpace(feed.Truncate(text, MaxPostLength)), nil
}
