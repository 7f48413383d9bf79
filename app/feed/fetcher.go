package feed

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrEmptyFeed = errors.New("feed has no items")

// DefaultMaxBodySize caps feed and article responses.
const DefaultMaxBodySize = 5 << 20

type Fetcher struct {
	httpClient     *http.Client
	parser         *Parser
	extractor      *ContentExtractor
	userAgent      string
	timeout        time.Duration
	extractContent bool
	maxBodySize    int64
}

type FetcherOptions struct {
	HTTPClient     *http.Client
	UserAgent      string
	Timeout        time.Duration
	ExtractContent bool
}

func NewFetcher(opts FetcherOptions) *Fetcher {
	return &Fetcher{
		httpClient:     cmp.Or(opts.HTTPClient, http.DefaultClient),
		parser:         NewParser(),
		extractor:      NewContentExtractor(),
		userAgent:      opts.UserAgent,
		timeout:        cmp.Or(opts.Timeout, 30*time.Second),
		extractContent: opts.ExtractContent,
		maxBodySize:    DefaultMaxBodySize,
	}
}

// Latest returns the first item of the feed at feedURL. fallbackLink stands in
// for an item without a link.
func (f *Fetcher) Latest(ctx context.Context, feedURL, fallbackLink string) (*Article, error) {
	data, err := f.get(ctx, feedURL, false)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	items, err := f.parser.Run(data)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyFeed
	}

	item := items[0]
	article := &Article{
		Title:       cmp.Or(strings.TrimSpace(item.Title), DefaultTitle),
		Link:        cmp.Or(strings.TrimSpace(item.Link), fallbackLink),
		PublishedAt: item.PublishedAt,
	}

	content := cmp.Or(PlainText(item.Content), PlainText(item.Description))

	if f.extractContent && utf8.RuneCountInString(content) < extractThreshold && item.Link != "" {
		extracted, err := f.extract(ctx, item.Link)
		if err != nil {
			slog.Warn("Content extraction failed, using feed text", "url", item.Link, "error", err)
		} else if utf8.RuneCountInString(extracted) > utf8.RuneCountInString(content) {
			content = extracted
		}
	}

	article.Content = cmp.Or(content, DefaultContent)

	slog.Debug("Latest article fetched",
		"feed_url", feedURL,
		"title", article.Title,
		"content_length", utf8.RuneCountInString(article.Content))

	return article, nil
}

func (f *Fetcher) extract(ctx context.Context, pageURL string) (string, error) {
	data, err := f.get(ctx, pageURL, true)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article: %w", err)
	}

	text, err := f.extractor.Run(data, pageURL)
	if err != nil {
		return "", err
	}
	return PlainText(text), nil
}

func (f *Fetcher) get(ctx context.Context, url string, requireHTML bool) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if requireHTML {
		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(strings.ToLower(contentType), "text/html") {
			return nil, fmt.Errorf("content type is not HTML: %s", contentType)
		}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > f.maxBodySize {
		return nil, fmt.Errorf("response body exceeds %d bytes", f.maxBodySize)
	}

	return data, nil
}
