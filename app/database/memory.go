package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	_ SiteRepository = (*MemoryStore)(nil)
	_ LogRepository  = (*MemoryStore)(nil)
)

// MemoryStore keeps sites and logs in process memory. Values handed out are copies.
type MemoryStore struct {
	mu      sync.RWMutex
	sites   map[string]*Site
	logs    []ActivityLog // insertion order, oldest first
	lastLog time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sites: make(map[string]*Site),
		now:   time.Now,
	}
}

func (m *MemoryStore) GetSite(ctx context.Context, id string) (*Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	site, ok := m.sites[id]
	if !ok {
		return nil, nil
	}
	return copySite(site), nil
}

func (m *MemoryStore) ListSites(ctx context.Context) ([]Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sites := make([]Site, 0, len(m.sites))
	for _, site := range m.sites {
		sites = append(sites, *copySite(site))
	}

	sort.Slice(sites, func(i, j int) bool {
		if sites[i].CreatedAt.Equal(sites[j].CreatedAt) {
			return sites[i].ID < sites[j].ID
		}
		return sites[i].CreatedAt.Before(sites[j].CreatedAt)
	})

	return sites, nil
}

func (m *MemoryStore) CreateSite(ctx context.Context, site Site) (*Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if site.ID == "" {
		site.ID = uuid.NewString()
	}
	if _, exists := m.sites[site.ID]; exists {
		return nil, fmt.Errorf("failed to create site %s: %w", site.ID, ErrSiteExists)
	}
	if site.Status == "" {
		site.Status = SiteStatusMonitoring
	}

	now := m.now().UTC()
	site.CreatedAt = now
	site.UpdatedAt = now

	m.sites[site.ID] = copySite(&site)
	return copySite(&site), nil
}

func (m *MemoryStore) UpdateSite(ctx context.Context, id string, update SiteUpdate) (*Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	site, ok := m.sites[id]
	if !ok {
		return nil, ErrSiteNotFound
	}

	updated := copySite(site)
	update.apply(updated)
	updated.UpdatedAt = m.now().UTC()

	m.sites[id] = updated
	return copySite(updated), nil
}

func (m *MemoryStore) DeleteSite(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sites[id]; !ok {
		return ErrSiteNotFound
	}
	delete(m.sites, id)
	return nil
}

func (m *MemoryStore) AppendLog(ctx context.Context, entry ActivityLog) (ActivityLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry.ID = uuid.NewString()
	entry.Timestamp = m.nextLogTime()

	m.logs = append(m.logs, entry)
	if len(m.logs) > MaxLogEntries {
		m.logs = append([]ActivityLog(nil), m.logs[len(m.logs)-MaxLogEntries:]...)
	}

	return entry, nil
}

// ListLogs returns entries most recent first.
func (m *MemoryStore) ListLogs(ctx context.Context) ([]ActivityLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := make([]ActivityLog, 0, len(m.logs))
	for i := len(m.logs) - 1; i >= 0; i-- {
		logs = append(logs, m.logs[i])
	}

	// Timestamps never decrease in insertion order, so a stable sort keeps
	// newer insertions first on ties.
	sort.SliceStable(logs, func(i, j int) bool {
		return logs[i].Timestamp.After(logs[j].Timestamp)
	})

	return logs, nil
}

// nextLogTime clamps the clock so timestamps never go backwards.
func (m *MemoryStore) nextLogTime() time.Time {
	now := m.now().UTC()
	if now.Before(m.lastLog) {
		now = m.lastLog
	}
	m.lastLog = now
	return now
}

func copySite(site *Site) *Site {
	c := *site
	if site.LastCheckedAt != nil {
		t := *site.LastCheckedAt
		c.LastCheckedAt = &t
	}
	return &c
}
