package facebook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
)

// Scopes requested from the user: list pages, post as a page, read page engagement.
var Scopes = []string{"pages_show_list", "pages_manage_posts", "pages_read_engagement"}

// AuthCodeURL builds the OAuth dialog URL carrying state.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(Scopes, ",")))
}

// ExchangeCode trades an authorization code for a user access token. The
// redirect URI sent is the configured one, which must match the dialog request.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			if graphErr := parseGraphError(retrieveErr.Body, status); graphErr != nil {
				return "", graphErr
			}
		}
		return "", fmt.Errorf("token exchange failed: %w", err)
	}

	if token.AccessToken == "" {
		return "", errors.New("token exchange failed: response has no access_token")
	}

	return token.AccessToken, nil
}
