package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var _ LogRepository = (*LogRepo)(nil)

// LogRepo handles database operations for the activity log
type LogRepo struct {
	db  *DB
	now func() time.Time
}

func NewLogRepository(db *DB) *LogRepo {
	return &LogRepo{db: db, now: time.Now}
}

// AppendLog stores the entry and evicts the oldest rows beyond MaxLogEntries.
// The assigned timestamp never precedes the newest stored one.
func (r *LogRepo) AppendLog(ctx context.Context, entry ActivityLog) (ActivityLog, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ActivityLog{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := r.now().UTC().UnixNano()

	var last sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT MAX(timestamp) FROM activity_logs`).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ActivityLog{}, fmt.Errorf("failed to read latest log timestamp: %w", err)
	}
	if last.Valid && last.Int64 > ts {
		ts = last.Int64
	}

	entry.ID = uuid.NewString()
	entry.Timestamp = time.Unix(0, ts).UTC()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO activity_logs (id, timestamp, site_id, site_name, status,
			article_title, article_url, message, facebook_post_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, ts, entry.SiteID, entry.SiteName, string(entry.Status),
		entry.ArticleTitle, entry.ArticleURL, entry.Message, entry.FacebookPostURL)
	if err != nil {
		return ActivityLog{}, fmt.Errorf("failed to insert log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM activity_logs WHERE seq IN (
			SELECT seq FROM activity_logs ORDER BY seq DESC LIMIT -1 OFFSET ?
		)
	`, MaxLogEntries)
	if err != nil {
		return ActivityLog{}, fmt.Errorf("failed to evict old logs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ActivityLog{}, fmt.Errorf("failed to commit log: %w", err)
	}

	return entry, nil
}

// ListLogs returns entries most recent first; later insertions win ties.
func (r *LogRepo) ListLogs(ctx context.Context) ([]ActivityLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, timestamp, site_id, site_name, status, article_title,
			article_url, message, facebook_post_url
		FROM activity_logs
		ORDER BY timestamp DESC, seq DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list logs: %w", err)
	}
	defer rows.Close()

	logs := []ActivityLog{}
	for rows.Next() {
		var entry ActivityLog
		var ts int64
		var status string
		if err := rows.Scan(&entry.ID, &ts, &entry.SiteID, &entry.SiteName, &status,
			&entry.ArticleTitle, &entry.ArticleURL, &entry.Message, &entry.FacebookPostURL); err != nil {
			return nil, fmt.Errorf("failed to scan log: %w", err)
		}
		entry.Timestamp = time.Unix(0, ts).UTC()
		entry.Status = LogStatus(status)
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}
