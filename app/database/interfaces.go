package database

import (
	"context"
	"errors"
)

var (
	ErrSiteNotFound = errors.New("site not found")
	ErrSiteExists   = errors.New("site already exists")
)

// SiteRepository is the credential store. GetSite returns (nil, nil) for an
// unknown id; UpdateSite and DeleteSite return ErrSiteNotFound instead.
type SiteRepository interface {
	GetSite(ctx context.Context, id string) (*Site, error)
	ListSites(ctx context.Context) ([]Site, error)
	CreateSite(ctx context.Context, site Site) (*Site, error)
	UpdateSite(ctx context.Context, id string, update SiteUpdate) (*Site, error)
	DeleteSite(ctx context.Context, id string) error
}

// LogRepository is the bounded, append-only activity log.
type LogRepository interface {
	AppendLog(ctx context.Context, entry ActivityLog) (ActivityLog, error)
	ListLogs(ctx context.Context) ([]ActivityLog, error)
}
