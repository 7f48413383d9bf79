package database

import (
	"time"
)

type SiteStatus string

const (
	SiteStatusMonitoring SiteStatus = "monitoring"
	SiteStatusPaused     SiteStatus = "paused"
	SiteStatusError      SiteStatus = "error"
)

func (s SiteStatus) Valid() bool {
	switch s {
	case SiteStatusMonitoring, SiteStatusPaused, SiteStatusError:
		return true
	}
	return false
}

// Site is a registered WordPress site and, once connected, the Facebook Page it posts to.
type Site struct {
	ID                      string
	Name                    string
	URL                     string
	RSSFeedURL              string
	FacebookPageID          string
	FacebookPageName        string
	FacebookPageAccessToken string // secret; encrypted at rest by the SQLite store
	Status                  SiteStatus
	ErrorMessage            string
	LastCheckedAt           *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// HasPageCredentials reports whether both the Page id and its access token are present.
func (s Site) HasPageCredentials() bool {
	return s.FacebookPageID != "" && s.FacebookPageAccessToken != ""
}

// SiteUpdate is a partial update. Nil fields are left untouched; a non-nil
// pointer to "" clears a text field.
type SiteUpdate struct {
	Name                    *string
	URL                     *string
	RSSFeedURL              *string
	FacebookPageID          *string
	FacebookPageName        *string
	FacebookPageAccessToken *string
	Status                  *SiteStatus
	ErrorMessage            *string
	LastCheckedAt           *time.Time
}

func (u SiteUpdate) apply(site *Site) {
	if u.Name != nil {
		site.Name = *u.Name
	}
	if u.URL != nil {
		site.URL = *u.URL
	}
	if u.RSSFeedURL != nil {
		site.RSSFeedURL = *u.RSSFeedURL
	}
	if u.FacebookPageID != nil {
		site.FacebookPageID = *u.FacebookPageID
	}
	if u.FacebookPageName != nil {
		site.FacebookPageName = *u.FacebookPageName
	}
	if u.FacebookPageAccessToken != nil {
		site.FacebookPageAccessToken = *u.FacebookPageAccessToken
	}
	if u.Status != nil {
		site.Status = *u.Status
	}
	if u.ErrorMessage != nil {
		site.ErrorMessage = *u.ErrorMessage
	}
	if u.LastCheckedAt != nil {
		t := *u.LastCheckedAt
		site.LastCheckedAt = &t
	}
}

type LogStatus string

const (
	LogStatusInfo              LogStatus = "info"
	LogStatusGeneratingPost    LogStatus = "generating_post"
	LogStatusPostingToFacebook LogStatus = "posting_to_facebook"
	LogStatusPosted            LogStatus = "posted"
	LogStatusError             LogStatus = "error"
	LogStatusSkipped           LogStatus = "skipped"
)

// ActivityLog is one pipeline event. Entries are never modified after they are appended.
type ActivityLog struct {
	ID              string
	Timestamp       time.Time
	SiteID          string
	SiteName        string // snapshot at write time
	Status          LogStatus
	ArticleTitle    string
	ArticleURL      string
	Message         string
	FacebookPostURL string
}

// MaxLogEntries bounds the activity log; the oldest inserted entry is evicted first.
const MaxLogEntries = 50
