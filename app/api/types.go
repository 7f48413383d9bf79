package api

import (
	"context"
	"time"

	"github.com/lysyi3m/feedpost/app/connect"
	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/tasks"
)

type ConnectService interface {
	Begin(siteID string) (*connect.BeginResult, *connect.Outcome)
	Complete(ctx context.Context, params connect.CallbackParams, storedCSRF string) connect.Outcome
}

var _ ConnectService = (*connect.Service)(nil)

type Options struct {
	DashboardPath    string
	SecureCookies    bool
	TestPostInterval time.Duration
	Version          string
}

type Handler struct {
	sites     database.SiteRepository
	logs      database.LogRepository
	connect   ConnectService
	runner    tasks.PipelineRunner
	scheduler tasks.TaskSchedulerInterface
	limiter   *siteLimiter
	opts      Options
}

type createSiteRequest struct {
	ID         string              `json:"id"`
	Name       string              `json:"name" binding:"required"`
	URL        string              `json:"url" binding:"required,url"`
	RSSFeedURL string              `json:"rss_feed_url" binding:"required,url"`
	Status     database.SiteStatus `json:"status"`
}

type updateSiteRequest struct {
	Name               *string              `json:"name" binding:"omitempty,min=1"`
	URL                *string              `json:"url" binding:"omitempty,url"`
	RSSFeedURL         *string              `json:"rss_feed_url" binding:"omitempty,url"`
	Status             *database.SiteStatus `json:"status"`
	DisconnectFacebook bool                 `json:"disconnect_facebook"`
}

// siteView is the public shape of a site. The page access token never leaves the server.
type siteView struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	URL               string              `json:"url"`
	RSSFeedURL        string              `json:"rss_feed_url"`
	FacebookPageID    string              `json:"facebook_page_id,omitempty"`
	FacebookPageName  string              `json:"facebook_page_name,omitempty"`
	FacebookConnected bool                `json:"facebook_connected"`
	Status            database.SiteStatus `json:"status"`
	ErrorMessage      string              `json:"error_message,omitempty"`
	LastCheckedAt     *time.Time          `json:"last_checked_at,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

func newSiteView(site database.Site) siteView {
	return siteView{
		ID:                site.ID,
		Name:              site.Name,
		URL:               site.URL,
		RSSFeedURL:        site.RSSFeedURL,
		FacebookPageID:    site.FacebookPageID,
		FacebookPageName:  site.FacebookPageName,
		FacebookConnected: site.HasPageCredentials(),
		Status:            site.Status,
		ErrorMessage:      site.ErrorMessage,
		LastCheckedAt:     site.LastCheckedAt,
		CreatedAt:         site.CreatedAt,
		UpdatedAt:         site.UpdatedAt,
	}
}

func newSiteViews(sites []database.Site) []siteView {
	views := make([]siteView, 0, len(sites))
	for _, site := range sites {
		views = append(views, newSiteView(site))
	}
	return views
}

type logView struct {
	ID              string             `json:"id"`
	Timestamp       time.Time          `json:"timestamp"`
	SiteID          string             `json:"site_id"`
	SiteName        string             `json:"site_name"`
	Status          database.LogStatus `json:"status"`
	ArticleTitle    string             `json:"article_title,omitempty"`
	ArticleURL      string             `json:"article_url,omitempty"`
	Message         string             `json:"message"`
	FacebookPostURL string             `json:"facebook_post_url,omitempty"`
}

func newLogView(entry database.ActivityLog) logView {
	return logView{
		ID:              entry.ID,
		Timestamp:       entry.Timestamp,
		SiteID:          entry.SiteID,
		SiteName:        entry.SiteName,
		Status:          entry.Status,
		ArticleTitle:    entry.ArticleTitle,
		ArticleURL:      entry.ArticleURL,
		Message:         entry.Message,
		FacebookPostURL: entry.FacebookPostURL,
	}
}

func newLogViews(entries []database.ActivityLog) []logView {
	views := make([]logView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, newLogView(entry))
	}
	return views
}
