package database

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/feedpost/app/secrets"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func newTestSiteRepo(t *testing.T, db *DB) *SiteRepo {
	t.Helper()

	cipher, err := secrets.NewCipher("test-passphrase")
	if err != nil {
		t.Fatalf("Failed to create cipher: %v", err)
	}
	return NewSiteRepository(db, cipher)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := newTestDB(t)

	version, dirty, err := RunMigrations(db)
	if err != nil {
		t.Fatalf("Expected no error on second run, got %v", err)
	}
	if version != 2 || dirty {
		t.Errorf("Expected version 2 clean, got %d dirty=%v", version, dirty)
	}
}

func TestSiteRepo_TokenEncryptedAtRest(t *testing.T) {
	db := newTestDB(t)
	repo := newTestSiteRepo(t, db)
	ctx := context.Background()

	_, err := repo.CreateSite(ctx, Site{ID: "s1", Name: "Blog", FacebookPageID: "p1", FacebookPageAccessToken: "EAAB-secret"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var raw string
	if err := db.QueryRow(`SELECT facebook_page_access_token FROM sites WHERE id = ?`, "s1").Scan(&raw); err != nil {
		t.Fatalf("Failed to read raw token: %v", err)
	}
	if strings.Contains(raw, "EAAB-secret") {
		t.Errorf("Expected token to be encrypted, got '%s'", raw)
	}

	site, err := repo.GetSite(ctx, "s1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if site.FacebookPageAccessToken != "EAAB-secret" {
		t.Errorf("Expected decrypted token, got '%s'", site.FacebookPageAccessToken)
	}
}

func TestSiteRepo_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := newTestSiteRepo(t, db)
	ctx := context.Background()

	created, err := repo.CreateSite(ctx, Site{Name: "Blog", URL: "https://blog.example", RSSFeedURL: "https://blog.example/feed"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if created.Status != SiteStatusMonitoring {
		t.Errorf("Expected default status monitoring, got %s", created.Status)
	}

	if _, err := repo.CreateSite(ctx, Site{ID: created.ID}); !errors.Is(err, ErrSiteExists) {
		t.Errorf("Expected ErrSiteExists, got %v", err)
	}

	checked := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	status := SiteStatusPaused
	updated, err := repo.UpdateSite(ctx, created.ID, SiteUpdate{Status: &status, LastCheckedAt: &checked})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.Status != SiteStatusPaused {
		t.Errorf("Expected paused, got %s", updated.Status)
	}
	if updated.LastCheckedAt == nil || !updated.LastCheckedAt.Equal(checked) {
		t.Errorf("Expected last checked %v, got %v", checked, updated.LastCheckedAt)
	}
	if updated.Name != "Blog" {
		t.Errorf("Expected name untouched, got '%s'", updated.Name)
	}

	if _, err := repo.UpdateSite(ctx, "missing", SiteUpdate{Status: &status}); !errors.Is(err, ErrSiteNotFound) {
		t.Errorf("Expected ErrSiteNotFound, got %v", err)
	}

	sites, err := repo.ListSites(ctx)
	if err != nil || len(sites) != 1 {
		t.Fatalf("Expected 1 site, got %d (%v)", len(sites), err)
	}

	if err := repo.DeleteSite(ctx, created.ID); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got, _ := repo.GetSite(ctx, created.ID); got != nil {
		t.Errorf("Expected site to be deleted, got %+v", got)
	}
}

func TestLogRepo_CapAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewLogRepository(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	step := 0
	repo.now = func() time.Time {
		step++
		// Every third call reports a time in the past.
		if step%3 == 0 {
			return base
		}
		return base.Add(time.Duration(step) * time.Second)
	}

	total := MaxLogEntries + 7
	for i := 0; i < total; i++ {
		if _, err := repo.AppendLog(ctx, ActivityLog{SiteID: "s1", Status: LogStatusInfo, Message: fmt.Sprintf("entry %d", i)}); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	logs, err := repo.ListLogs(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(logs) != MaxLogEntries {
		t.Fatalf("Expected %d logs, got %d", MaxLogEntries, len(logs))
	}
	if logs[0].Message != fmt.Sprintf("entry %d", total-1) {
		t.Errorf("Expected newest entry first, got '%s'", logs[0].Message)
	}
	if logs[len(logs)-1].Message != "entry 7" {
		t.Errorf("Expected oldest surviving entry 'entry 7', got '%s'", logs[len(logs)-1].Message)
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].Timestamp.After(logs[i-1].Timestamp) {
			t.Errorf("Expected non-increasing timestamps at %d", i)
		}
	}
}
