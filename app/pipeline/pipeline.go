package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/feedpost/app/ai"
	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/feed"
	"github.com/lysyi3m/feedpost/app/lock"
	"github.com/lysyi3m/feedpost/app/publisher"
)

const (
	// DefaultLockTTL bounds a run that never releases its lock.
	DefaultLockTTL = 5 * time.Minute

	previewLength = 100
)

type Fetcher interface {
	Latest(ctx context.Context, feedURL, fallbackLink string) (*feed.Article, error)
}

type Publisher interface {
	Publish(ctx context.Context, site database.Site, message, link string) publisher.Result
}

type Pipeline struct {
	sites     database.SiteRepository
	logs      database.LogRepository
	fetcher   Fetcher
	generator ai.Generator
	publisher Publisher
	locker    lock.Locker
	lockTTL   time.Duration
	now       func() time.Time
}

func New(sites database.SiteRepository, logs database.LogRepository, fetcher Fetcher, generator ai.Generator, pub Publisher, locker lock.Locker) *Pipeline {
	return &Pipeline{
		sites:     sites,
		logs:      logs,
		fetcher:   fetcher,
		generator: generator,
		publisher: pub,
		locker:    locker,
		lockTTL:   DefaultLockTTL,
		now:       time.Now,
	}
}

type RunResult struct {
	Success bool
	Message string
	Log     *database.ActivityLog // last entry written by the run
	PostURL string
}

// Run fetches the latest article of a site, generates post text and publishes it.
func (p *Pipeline) Run(ctx context.Context, siteID string) RunResult {
	site, err := p.sites.GetSite(ctx, siteID)
	if err != nil {
		slog.Error("Database error", "operation", "GetSite", "site_id", siteID, "error", err)
		return RunResult{Message: "Failed to load site."}
	}
	if site == nil {
		return RunResult{Message: fmt.Sprintf("Site %s not found.", siteID)}
	}

	run := &runLog{pipeline: p, site: site}

	if !site.HasPageCredentials() {
		return run.fail(ctx, database.LogStatusSkipped, "Facebook Page is not connected for this site. Connect a Page first.")
	}
	// Sites in error status run on purpose: a successful run is how they recover.
	if site.Status == database.SiteStatusPaused {
		return run.fail(ctx, database.LogStatusSkipped, "Site is paused.")
	}

	release, err := p.locker.Acquire(ctx, lock.SiteKey(site.ID), p.lockTTL)
	if errors.Is(err, lock.ErrLocked) {
		return run.fail(ctx, database.LogStatusSkipped, "A run is already in progress for this site.")
	}
	if err != nil {
		slog.Error("Failed to acquire site lock", "site_id", site.ID, "error", err)
		return run.fail(ctx, database.LogStatusError, "Could not acquire the site lock: "+err.Error())
	}
	defer release()

	slog.Info("Pipeline run started", "site_id", site.ID, "feed_url", site.RSSFeedURL)

	article, err := p.fetcher.Latest(ctx, site.RSSFeedURL, site.URL)
	if err != nil {
		slog.Warn("Feed fetch failed", "site_id", site.ID, "error", err)
		if errors.Is(err, feed.ErrEmptyFeed) {
			return run.fail(ctx, database.LogStatusError, "The feed has no articles.")
		}
		return run.fail(ctx, database.LogStatusError, "Failed to fetch feed: "+err.Error())
	}

	p.markChecked(ctx, site.ID)

	run.title = article.Title
	run.url = article.Link
	content := feed.Truncate(article.Content, feed.MaxContentLength)

	run.write(ctx, database.LogStatusInfo, "Fetched latest article: "+article.Title)
	run.write(ctx, database.LogStatusGeneratingPost, "Generating Facebook post text.")

	text, err := p.generator.GeneratePost(ctx, ai.PostInput{
		Title:   article.Title,
		Content: content,
		URL:     article.Link,
	})
	if err != nil {
		slog.Error("Post generation failed", "site_id", site.ID, "error", err)
		return run.fail(ctx, database.LogStatusError, "Failed to generate post text: "+err.Error())
	}

	preview := feed.Truncate(text, previewLength)
	if preview != text {
		preview += "..."
	}
	run.write(ctx, database.LogStatusPostingToFacebook, "Posting to Facebook: "+preview)

	res := p.publisher.Publish(ctx, *site, text, article.Link)
	if !res.OK() {
		msg := "Failed to publish to Facebook."
		if res.Err != nil {
			msg = res.Err.Error()
		}
		return run.fail(ctx, database.LogStatusError, msg)
	}

	var entry *database.ActivityLog
	var message string
	postURL := res.Post.PublicURL()

	switch post := res.Post.(type) {
	case publisher.SimulatedPost:
		message = "Posted to Facebook (simulated)."
		entry = run.write(ctx, database.LogStatusPosted, fmt.Sprintf("Posted to Facebook (simulated, %s): %s", post.Reason, text))
	default:
		message = "Posted to Facebook."
		run.postURL = postURL
		entry = run.write(ctx, database.LogStatusPosted, "Posted to Facebook: "+text)
	}

	if site.Status == database.SiteStatusError {
		p.heal(ctx, site.ID)
	}

	slog.Info("Pipeline run finished", "site_id", site.ID, "post_id", res.Post.PostID())

	return RunResult{
		Success: true,
		Message: message,
		Log:     entry,
		PostURL: postURL,
	}
}

func (p *Pipeline) markChecked(ctx context.Context, siteID string) {
	now := p.now().UTC()
	if _, err := p.sites.UpdateSite(ctx, siteID, database.SiteUpdate{LastCheckedAt: &now}); err != nil {
		slog.Error("Database error", "operation", "UpdateSite", "site_id", siteID, "error", err)
	}
}

func (p *Pipeline) heal(ctx context.Context, siteID string) {
	status := database.SiteStatusMonitoring
	cleared := ""
	if _, err := p.sites.UpdateSite(ctx, siteID, database.SiteUpdate{Status: &status, ErrorMessage: &cleared}); err != nil {
		slog.Error("Database error", "operation", "UpdateSite", "site_id", siteID, "error", err)
		return
	}
	slog.Info("Site recovered from error status", "site_id", siteID)
}

// runLog writes the activity entries of one run.
type runLog struct {
	pipeline *Pipeline
	site     *database.Site
	title    string
	url      string
	postURL  string
}

func (r *runLog) write(ctx context.Context, status database.LogStatus, message string) *database.ActivityLog {
	entry := database.ActivityLog{
		SiteID:          r.site.ID,
		SiteName:        r.site.Name,
		Status:          status,
		ArticleTitle:    r.title,
		ArticleURL:      r.url,
		Message:         message,
		FacebookPostURL: r.postURL,
	}

	stored, err := r.pipeline.logs.AppendLog(ctx, entry)
	if err != nil {
		slog.Error("Database error", "operation", "AppendLog", "site_id", r.site.ID, "error", err)
		return &entry
	}
	return &stored
}

func (r *runLog) fail(ctx context.Context, status database.LogStatus, message string) RunResult {
	return RunResult{
		Message: message,
		Log:     r.write(ctx, status, message),
	}
}
