package feed

import (
	"time"
)

const (
	DefaultTitle   = "Untitled Article"
	DefaultContent = "No content available."

	// MaxContentLength bounds the article text handed to the text generator, in runes.
	MaxContentLength = 10000

	// extractThreshold is the text length, in runes, below which the article page is fetched for a fuller body.
	extractThreshold = 280
)

type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt *time.Time
}

// Article is the latest feed item reduced to what the publisher needs.
type Article struct {
	Title       string
	Link        string
	Content     string // plain text
	PublishedAt *time.Time
}
