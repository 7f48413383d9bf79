package ai

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/lysyi3m/feedpost/app/feed"
)

// TemplateGenerator builds a post from the article title and link without calling a model.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (g *TemplateGenerator) GeneratePost(ctx context.Context, input PostInput) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	title := strings.TrimSpace(input.Title)
	url := strings.TrimSpace(input.URL)

	if url == "" {
		return finalize(title)
	}

	// Keep the link intact and shorten the title instead.
	room := MaxPostLength - utf8.RuneCountInString(url) - len("New on the blog: \n")
	if room < 0 {
		room = 0
	}
	return finalize("New on the blog: " + feed.Truncate(title, room) + "\n" + url)
}
