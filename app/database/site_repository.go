package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TokenCipher protects page access tokens at rest.
type TokenCipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

var _ SiteRepository = (*SiteRepo)(nil)

// SiteRepo handles database operations for sites
type SiteRepo struct {
	db     *DB
	cipher TokenCipher
	now    func() time.Time
}

func NewSiteRepository(db *DB, cipher TokenCipher) *SiteRepo {
	return &SiteRepo{db: db, cipher: cipher, now: time.Now}
}

const siteColumns = `id, name, url, rss_feed_url, facebook_page_id, facebook_page_name,
	facebook_page_access_token, status, error_message, last_checked_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SiteRepo) GetSite(ctx context.Context, id string) (*Site, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)

	site, err := r.scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get site: %w", err)
	}
	return site, nil
}

func (r *SiteRepo) ListSites(ctx context.Context) ([]Site, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		site, err := r.scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, *site)
	}

	return sites, rows.Err()
}

func (r *SiteRepo) CreateSite(ctx context.Context, site Site) (*Site, error) {
	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	if site.Status == "" {
		site.Status = SiteStatusMonitoring
	}
	now := r.now().UTC()
	site.CreatedAt = now
	site.UpdatedAt = now

	token, err := r.cipher.Encrypt(site.FacebookPageAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt page token: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO sites (`+siteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, site.ID, site.Name, site.URL, site.RSSFeedURL, site.FacebookPageID, site.FacebookPageName,
		token, string(site.Status), site.ErrorMessage, nullableTime(site.LastCheckedAt),
		now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("failed to create site %s: %w", site.ID, ErrSiteExists)
	}

	return &site, nil
}

func (r *SiteRepo) UpdateSite(ctx context.Context, id string, update SiteUpdate) (*Site, error) {
	var sets []string
	var args []any

	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Name != nil {
		set("name", *update.Name)
	}
	if update.URL != nil {
		set("url", *update.URL)
	}
	if update.RSSFeedURL != nil {
		set("rss_feed_url", *update.RSSFeedURL)
	}
	if update.FacebookPageID != nil {
		set("facebook_page_id", *update.FacebookPageID)
	}
	if update.FacebookPageName != nil {
		set("facebook_page_name", *update.FacebookPageName)
	}
	if update.FacebookPageAccessToken != nil {
		token, err := r.cipher.Encrypt(*update.FacebookPageAccessToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt page token: %w", err)
		}
		set("facebook_page_access_token", token)
	}
	if update.Status != nil {
		set("status", string(*update.Status))
	}
	if update.ErrorMessage != nil {
		set("error_message", *update.ErrorMessage)
	}
	if update.LastCheckedAt != nil {
		set("last_checked_at", update.LastCheckedAt.UnixNano())
	}
	set("updated_at", r.now().UTC().UnixNano())

	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		`UPDATE sites SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update site: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSiteNotFound
	}

	site, err := r.GetSite(ctx, id)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, ErrSiteNotFound
	}
	return site, nil
}

func (r *SiteRepo) DeleteSite(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete site: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSiteNotFound
	}
	return nil
}

func (r *SiteRepo) scanSite(row rowScanner) (*Site, error) {
	var site Site
	var status, token string
	var lastChecked sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(&site.ID, &site.Name, &site.URL, &site.RSSFeedURL, &site.FacebookPageID,
		&site.FacebookPageName, &token, &status, &site.ErrorMessage, &lastChecked,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	site.FacebookPageAccessToken, err = r.cipher.Decrypt(token)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt page token for site %s: %w", site.ID, err)
	}

	site.Status = SiteStatus(status)
	site.CreatedAt = time.Unix(0, createdAt).UTC()
	site.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if lastChecked.Valid {
		t := time.Unix(0, lastChecked.Int64).UTC()
		site.LastCheckedAt = &t
	}

	return &site, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
