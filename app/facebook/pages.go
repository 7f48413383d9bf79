package facebook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
)

const TaskCreateContent = "CREATE_CONTENT"

var ErrNoPageData = errors.New("pages response has no data array")

type Page struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	AccessToken string   `json:"access_token"`
	Tasks       []string `json:"tasks"`
}

func (p Page) CanCreateContent() bool {
	return slices.Contains(p.Tasks, TaskCreateContent)
}

// ListPages returns the pages the user administers, first page of results only.
func (c *Client) ListPages(ctx context.Context, userToken string) ([]Page, error) {
	params := url.Values{}
	params.Set("fields", "id,name,access_token,tasks")
	params.Set("limit", "25")
	params.Set("access_token", userToken)

	var result struct {
		Data []Page `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "me/accounts", params, &result); err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, ErrNoPageData
	}

	return result.Data, nil
}

type NoPageError struct {
	PagesFound int
}

func (e *NoPageError) Error() string {
	if e.PagesFound == 0 {
		return "No Facebook Pages were found for this account. Create a Page or make sure you granted access to it."
	}
	return fmt.Sprintf("Found %d Facebook Page(s), but none grants permission to create content. Check your role on the Page.", e.PagesFound)
}

// SelectPage returns the first page, in list order, that can create content.
func SelectPage(pages []Page) (Page, error) {
	for _, page := range pages {
		if page.CanCreateContent() {
			return page, nil
		}
	}
	return Page{}, &NoPageError{PagesFound: len(pages)}
}
