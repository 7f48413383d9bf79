package seed

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/feedpost/app/database"
)

type siteEntry struct {
	ID                      string `yaml:"id"`
	Name                    string `yaml:"name"`
	URL                     string `yaml:"url"`
	RSSFeedURL              string `yaml:"rss_feed_url"`
	FacebookPageID          string `yaml:"facebook_page_id"`
	FacebookPageName        string `yaml:"facebook_page_name"`
	FacebookPageAccessToken string `yaml:"facebook_page_access_token"`
	Status                  string `yaml:"status"`
}

// Load reads a YAML list of sites.
func Load(path string) ([]database.Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []siteEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	sites := make([]database.Site, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for i, entry := range entries {
		if err := validate(entry); err != nil {
			return nil, fmt.Errorf("invalid site at index %d: %w", i, err)
		}
		if seen[entry.ID] {
			return nil, fmt.Errorf("duplicate site id %q at index %d", entry.ID, i)
		}
		seen[entry.ID] = true

		status := database.SiteStatus(entry.Status)
		if status == "" {
			status = database.SiteStatusMonitoring
		}

		sites = append(sites, database.Site{
			ID:                      entry.ID,
			Name:                    entry.Name,
			URL:                     entry.URL,
			RSSFeedURL:              entry.RSSFeedURL,
			FacebookPageID:          entry.FacebookPageID,
			FacebookPageName:        entry.FacebookPageName,
			FacebookPageAccessToken: entry.FacebookPageAccessToken,
			Status:                  status,
		})
	}

	return sites, nil
}

func validate(entry siteEntry) error {
	requiredFields := []struct {
		name  string
		value string
	}{
		{"id", entry.ID},
		{"name", entry.Name},
		{"url", entry.URL},
		{"rss_feed_url", entry.RSSFeedURL},
	}

	for _, field := range requiredFields {
		if field.value == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}

	if entry.Status != "" && !database.SiteStatus(entry.Status).Valid() {
		return fmt.Errorf("invalid status %q", entry.Status)
	}

	return nil
}

// Apply creates the sites missing from repo. Existing sites are left untouched.
func Apply(ctx context.Context, repo database.SiteRepository, sites []database.Site) (int, error) {
	created := 0

	for _, site := range sites {
		existing, err := repo.GetSite(ctx, site.ID)
		if err != nil {
			return created, fmt.Errorf("failed to check site %s: %w", site.ID, err)
		}
		if existing != nil {
			slog.Debug("Seed site already exists, skipping", "site_id", site.ID)
			continue
		}

		if _, err := repo.CreateSite(ctx, site); err != nil {
			return created, fmt.Errorf("failed to create site %s: %w", site.ID, err)
		}
		created++

		slog.Debug("Seed site created", "site_id", site.ID, "name", site.Name, "connected", site.HasPageCredentials())
	}

	return created, nil
}
