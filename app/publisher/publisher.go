package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/facebook"
)

// MockTokenPrefix marks placeholder page tokens that are never sent to Facebook.
const MockTokenPrefix = "mock-access-token"

const DefaultSimulationDelay = time.Second

type GraphClient interface {
	PublishFeed(ctx context.Context, pageID, pageToken, message, link string) (string, error)
}

type Publisher struct {
	client GraphClient
	sites  database.SiteRepository
	appID  string

	SimulationDelay time.Duration
	now             func() time.Time
}

func NewPublisher(client GraphClient, sites database.SiteRepository, appID string) *Publisher {
	return &Publisher{
		client:          client,
		sites:           sites,
		appID:           appID,
		SimulationDelay: DefaultSimulationDelay,
		now:             time.Now,
	}
}

// Publish posts message and link to the site's page. Graph failures set the
// site to error status; the access token is never modified.
func (p *Publisher) Publish(ctx context.Context, site database.Site, message, link string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Publisher panicked", "site_id", site.ID, "panic", r)
			res = Result{Err: fmt.Errorf("unexpected publisher failure: %v", r)}
		}
	}()

	if reason, simulate := p.simulationReason(site); simulate {
		return p.simulate(ctx, site, reason)
	}

	postID, err := p.client.PublishFeed(ctx, site.FacebookPageID, site.FacebookPageAccessToken, message, link)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The post may exist already; the site keeps its status.
		slog.Warn("Facebook publish interrupted", "site_id", site.ID, "error", err)
		return Result{Err: fmt.Errorf("publish interrupted: %w", err)}
	}
	if err != nil {
		return Result{Err: p.handleFailure(ctx, site, err)}
	}

	url := facebook.PostURL(site.FacebookPageID, postID)
	slog.Info("Published to Facebook", "site_id", site.ID, "page_id", site.FacebookPageID, "post_id", postID)

	return Result{Post: RealPost{ID: postID, URL: url}}
}

func (p *Publisher) simulationReason(site database.Site) (SimulationReason, bool) {
	switch {
	case p.appID == "":
		return ReasonAppIDMissing, true
	case site.FacebookPageID == "":
		return ReasonPageIDMissing, true
	case site.FacebookPageAccessToken == "":
		return ReasonTokenMissing, true
	case strings.HasPrefix(site.FacebookPageAccessToken, MockTokenPrefix):
		return ReasonMockToken, true
	}
	return "", false
}

func (p *Publisher) simulate(ctx context.Context, site database.Site, reason SimulationReason) Result {
	slog.Info("Simulating Facebook publish", "site_id", site.ID, "reason", reason)

	if p.SimulationDelay > 0 {
		timer := time.NewTimer(p.SimulationDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return Result{Err: ctx.Err()}
		case <-timer.C:
		}
	}

	id := fmt.Sprintf("simulated_fb_post_%s_%d", reason, p.now().UnixNano())
	return Result{Post: SimulatedPost{ID: id, Reason: reason}}
}

func (p *Publisher) handleFailure(ctx context.Context, site database.Site, err error) error {
	kind := facebook.Classify(err)
	detail := strings.TrimRight(facebook.Detail(err), ". ")

	var message string
	if kind.NeedsReconnect() {
		message = fmt.Sprintf("Facebook token/permission error: %s. Please reconnect the page.", detail)
	} else {
		message = fmt.Sprintf("Facebook API error: %s", detail)
	}

	slog.Error("Facebook publish failed",
		"site_id", site.ID,
		"page_id", site.FacebookPageID,
		"kind", kind.String(),
		"error", err)

	status := database.SiteStatusError
	if _, updateErr := p.sites.UpdateSite(ctx, site.ID, database.SiteUpdate{
		Status:       &status,
		ErrorMessage: &message,
	}); updateErr != nil && !errors.Is(updateErr, database.ErrSiteNotFound) {
		slog.Error("Database error", "operation", "UpdateSite", "site_id", site.ID, "error", updateErr)
	}

	return &PublishError{Kind: kind, Message: message, Err: err}
}
