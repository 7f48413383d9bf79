package facebook

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

const postHost = "https://facebook.com"

// PublishFeed creates a post on the page feed and returns the post id.
func (c *Client) PublishFeed(ctx context.Context, pageID, pageToken, message, link string) (string, error) {
	params := url.Values{}
	params.Set("message", message)
	if link != "" {
		params.Set("link", link)
	}
	params.Set("fields", "id")
	params.Set("access_token", pageToken)

	var result struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, url.PathEscape(pageID)+"/feed", params, &result); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("publish response has no post id")
	}

	return result.ID, nil
}

// PostURL builds the public URL of a post. Graph ids of the form
// "{page}_{post}" are split; any other id is linked under pageID as is.
func PostURL(pageID, postID string) string {
	if page, post, ok := strings.Cut(postID, "_"); ok && page != "" && post != "" {
		return postHost + "/" + url.PathEscape(page) + "/posts/" + url.PathEscape(post)
	}
	return postHost + "/" + url.PathEscape(pageID) + "/posts/" + url.PathEscape(postID)
}
