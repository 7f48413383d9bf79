package facebook

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultGraphURL   = "https://graph.facebook.com"
	DefaultDialogURL  = "https://www.facebook.com"
	DefaultAPIVersion = "v19.0"
)

// maxResponseSize caps Graph responses; page lists are requested with a small limit.
const maxResponseSize = 2 << 20

type Config struct {
	AppID       string
	AppSecret   string
	RedirectURI string
	GraphURL    string
	DialogURL   string
	APIVersion  string
	HTTPClient  *http.Client
}

// Client talks to the Graph API and the OAuth dialog.
type Client struct {
	httpClient *http.Client
	graphBase  string
	oauth      *oauth2.Config
	maxBody    int64
}

func NewClient(cfg Config) *Client {
	version := cmp.Or(cfg.APIVersion, DefaultAPIVersion)
	graphBase := strings.TrimRight(cmp.Or(cfg.GraphURL, DefaultGraphURL), "/") + "/" + version
	dialogBase := strings.TrimRight(cmp.Or(cfg.DialogURL, DefaultDialogURL), "/") + "/" + version

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		httpClient: httpClient,
		graphBase:  graphBase,
		maxBody:    maxResponseSize,
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURI,
			Endpoint: oauth2.Endpoint{
				AuthURL:   dialogBase + "/dialog/oauth",
				TokenURL:  graphBase + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// call performs a Graph request. GET parameters go in the query string,
// anything else is sent as a form body.
func (c *Client) call(ctx context.Context, method, path string, params url.Values, out any) error {
	endpoint := c.graphBase + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > c.maxBody {
		return fmt.Errorf("response body exceeds %d bytes", c.maxBody)
	}

	if graphErr := parseGraphError(data, resp.StatusCode); graphErr != nil {
		return graphErr
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
