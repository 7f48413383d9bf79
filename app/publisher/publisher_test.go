package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/facebook"
)

type mockGraphClient struct {
	calls   int
	postID  string
	err     error
	message string
	link    string
}

func (m *mockGraphClient) PublishFeed(ctx context.Context, pageID, pageToken, message, link string) (string, error) {
	m.calls++
	m.message = message
	m.link = link
	return m.postID, m.err
}

func newTestPublisher(t *testing.T, client GraphClient, appID string) (*Publisher, *database.MemoryStore, database.Site) {
	t.Helper()

	store := database.NewMemoryStore()
	site, err := store.CreateSite(context.Background(), database.Site{
		ID:                      "1",
		Name:                    "Blog",
		FacebookPageID:          "p1",
		FacebookPageAccessToken: "real-token",
	})
	if err != nil {
		t.Fatalf("Failed to create site: %v", err)
	}

	p := NewPublisher(client, store, appID)
	p.SimulationDelay = 0
	return p, store, *site
}

func TestPublish_Success(t *testing.T) {
	client := &mockGraphClient{postID: "p1_42"}
	p, _, site := newTestPublisher(t, client, "app")

	res := p.Publish(context.Background(), site, "Hello", "https://blog.example/post")
	if !res.OK() {
		t.Fatalf("Expected success, got %v", res.Err)
	}

	post, ok := res.Post.(RealPost)
	if !ok {
		t.Fatalf("Expected RealPost, got %T", res.Post)
	}
	if post.ID != "p1_42" || post.URL != "https://facebook.com/p1/posts/42" {
		t.Errorf("Expected post p1_42 with URL, got %+v", post)
	}
	if client.message != "Hello" || client.link != "https://blog.example/post" {
		t.Errorf("Expected message and link passed through, got '%s' '%s'", client.message, client.link)
	}
}

func TestPublish_Simulation(t *testing.T) {
	tests := []struct {
		name   string
		appID  string
		mutate func(s *database.Site)
		want   SimulationReason
	}{
		{"app id missing", "", func(s *database.Site) {}, ReasonAppIDMissing},
		{"page id missing", "app", func(s *database.Site) { s.FacebookPageID = "" }, ReasonPageIDMissing},
		{"token missing", "app", func(s *database.Site) { s.FacebookPageAccessToken = "" }, ReasonTokenMissing},
		{"mock token", "app", func(s *database.Site) { s.FacebookPageAccessToken = "mock-access-token-123" }, ReasonMockToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockGraphClient{postID: "never"}
			p, _, site := newTestPublisher(t, client, tt.appID)
			tt.mutate(&site)

			res := p.Publish(context.Background(), site, "Hello", "")
			if !res.OK() {
				t.Fatalf("Expected simulated success, got %v", res.Err)
			}
			if client.calls != 0 {
				t.Errorf("Expected no Graph calls, got %d", client.calls)
			}

			post, ok := res.Post.(SimulatedPost)
			if !ok {
				t.Fatalf("Expected SimulatedPost, got %T", res.Post)
			}
			if post.Reason != tt.want {
				t.Errorf("Expected reason %s, got %s", tt.want, post.Reason)
			}
			if !strings.HasPrefix(post.ID, "simulated_fb_post_"+string(tt.want)+"_") {
				t.Errorf("Expected tagged id, got '%s'", post.ID)
			}
			if post.PublicURL() != "" {
				t.Errorf("Expected no public URL, got '%s'", post.PublicURL())
			}
		})
	}
}

func TestPublish_SimulationHonorsContext(t *testing.T) {
	p, _, site := newTestPublisher(t, &mockGraphClient{}, "")
	p.SimulationDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := p.Publish(ctx, site, "Hello", "")
	if !errors.Is(res.Err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", res.Err)
	}
}

func TestPublish_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantKind   facebook.ErrorKind
		wantPrefix string
	}{
		{
			name:       "expired token",
			err:        &facebook.GraphError{Code: 190, Type: "OAuthException", Message: "Error validating access token: Session has expired."},
			wantKind:   facebook.KindToken,
			wantPrefix: "Facebook token/permission error: Error validating access token: Session has expired. Please reconnect the page.",
		},
		{
			name:       "permission",
			err:        &facebook.GraphError{Code: 200, Message: "(#200) Requires pages_manage_posts permission"},
			wantKind:   facebook.KindPermission,
			wantPrefix: "Facebook token/permission error:",
		},
		{
			name:       "generic",
			err:        &facebook.GraphError{Code: 100, Message: "Invalid parameter"},
			wantKind:   facebook.KindOther,
			wantPrefix: "Facebook API error: Invalid parameter",
		},
		{
			name:       "duplicate post",
			err:        &facebook.GraphError{Code: 506, Type: "OAuthException", Message: "Duplicate status message"},
			wantKind:   facebook.KindOther,
			wantPrefix: "Facebook API error: Duplicate status message",
		},
		{
			name:       "network",
			err:        errors.New("request failed: connection refused"),
			wantKind:   facebook.KindOther,
			wantPrefix: "Facebook API error: request failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, site := newTestPublisher(t, &mockGraphClient{err: tt.err}, "app")

			res := p.Publish(context.Background(), site, "Hello", "")
			if res.OK() {
				t.Fatal("Expected failure")
			}

			var pubErr *PublishError
			if !errors.As(res.Err, &pubErr) {
				t.Fatalf("Expected PublishError, got %T", res.Err)
			}
			if pubErr.Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, pubErr.Kind)
			}
			if !strings.HasPrefix(pubErr.Message, tt.wantPrefix) {
				t.Errorf("Expected message starting with '%s', got '%s'", tt.wantPrefix, pubErr.Message)
			}

			stored, _ := store.GetSite(context.Background(), site.ID)
			if stored.Status != database.SiteStatusError {
				t.Errorf("Expected error status, got %s", stored.Status)
			}
			if stored.ErrorMessage != pubErr.Message {
				t.Errorf("Expected stored message '%s', got '%s'", pubErr.Message, stored.ErrorMessage)
			}
			if stored.FacebookPageAccessToken != "real-token" {
				t.Errorf("Expected token untouched, got '%s'", stored.FacebookPageAccessToken)
			}
		})
	}
}

func TestPublish_InterruptedLeavesSiteAlone(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"canceled", fmt.Errorf("request failed: %w", context.Canceled)},
		{"deadline", fmt.Errorf("request failed: %w", context.DeadlineExceeded)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, store, site := newTestPublisher(t, &mockGraphClient{err: tt.err}, "app")

			res := p.Publish(context.Background(), site, "Hello", "")
			if res.OK() {
				t.Fatal("Expected failure")
			}
			if !errors.Is(res.Err, tt.err) {
				t.Errorf("Expected wrapped %v, got %v", tt.err, res.Err)
			}

			stored, _ := store.GetSite(context.Background(), site.ID)
			if stored.Status != database.SiteStatusMonitoring {
				t.Errorf("Expected status monitoring, got %s", stored.Status)
			}
			if stored.ErrorMessage != "" {
				t.Errorf("Expected no error message, got '%s'", stored.ErrorMessage)
			}
		})
	}
}

type panickingClient struct{}

func (panickingClient) PublishFeed(ctx context.Context, pageID, pageToken, message, link string) (string, error) {
	panic("boom")
}

func TestPublish_NeverPanics(t *testing.T) {
	p, _, site := newTestPublisher(t, panickingClient{}, "app")

	res := p.Publish(context.Background(), site, "Hello", "")
	if res.Err == nil {
		t.Error("Expected error from recovered panic")
	}
}
