package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath             string `long:"db-path" env:"DB_PATH" description:"SQLite database file (in-memory storage when empty)"`
	TokenEncryptionKey string `long:"token-encryption-key" env:"TOKEN_ENCRYPTION_KEY" description:"Secret used to encrypt page access tokens at rest (required with --db-path)"`
	SitesFile          string `long:"sites-file" env:"SITES_FILE" description:"YAML file with sites to register on startup"`

	// HTTP configuration
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl       string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://poster.example.com)"`
	DashboardPath string `long:"dashboard-path" env:"DASHBOARD_PATH" default:"/dashboard" description:"Where OAuth flows redirect when they finish"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Production    bool   `long:"production" env:"PRODUCTION" description:"Mark cookies Secure and assume HTTPS"`

	// Facebook application
	FacebookAppID       string `long:"facebook-app-id" env:"FACEBOOK_APP_ID" description:"Facebook application id"`
	FacebookAppSecret   string `long:"facebook-app-secret" env:"FACEBOOK_APP_SECRET" description:"Facebook application secret"`
	FacebookRedirectURI string `long:"facebook-redirect-uri" env:"FACEBOOK_REDIRECT_URI" description:"OAuth redirect URI registered with Facebook"`
	FacebookGraphURL    string `long:"facebook-graph-url" env:"FACEBOOK_GRAPH_URL" default:"https://graph.facebook.com" description:"Graph API base URL"`
	FacebookDialogURL   string `long:"facebook-dialog-url" env:"FACEBOOK_DIALOG_URL" default:"https://www.facebook.com" description:"OAuth dialog base URL"`
	FacebookAPIVersion  string `long:"facebook-api-version" env:"FACEBOOK_API_VERSION" default:"v19.0" description:"Graph API version"`
	StateSecret         string `long:"state-secret" env:"STATE_SECRET" description:"HMAC secret for OAuth state tokens (random per process when empty)"`

	// Text generation
	AIAPIKey  string `long:"ai-api-key" env:"AI_API_KEY" description:"API key for the chat completions endpoint (template posts when empty)"`
	AIBaseURL string `long:"ai-base-url" env:"AI_BASE_URL" default:"https://api.openai.com/v1" description:"Chat completions base URL"`
	AIModel   string `long:"ai-model" env:"AI_MODEL" default:"gpt-4o-mini" description:"Model used to write posts"`

	// Pipeline
	RedisAddr        string `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for per-site publish locks (in-process locks when empty)"`
	WorkerCount      int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of workers for bulk test posts"`
	TestPostInterval int    `long:"test-post-interval" env:"TEST_POST_INTERVAL" default:"10" description:"Minimum seconds between manual test posts per site (0 disables)"`
	ExtractContent   bool   `long:"extract-content" env:"EXTRACT_CONTENT" description:"Fetch article pages when feed content is too short"`
	FetchTimeout     int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Timeout in seconds for outbound HTTP calls"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"FeedPost/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// A missing .env is fine; real environment variables win over it.
	_ = godotenv.Load()

	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := fromRaw(raw)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func fromRaw(raw rawCfg) *Cfg {
	return &Cfg{
		DBPath:              raw.DBPath,
		TokenEncryptionKey:  raw.TokenEncryptionKey,
		SitesFile:           raw.SitesFile,
		Port:                raw.Port,
		BaseUrl:             raw.BaseUrl,
		DashboardPath:       cmp.Or(raw.DashboardPath, "/dashboard"),
		APIAccessKey:        raw.APIAccessKey,
		Production:          raw.Production,
		FacebookAppID:       raw.FacebookAppID,
		FacebookAppSecret:   raw.FacebookAppSecret,
		FacebookRedirectURI: raw.FacebookRedirectURI,
		FacebookGraphURL:    raw.FacebookGraphURL,
		FacebookDialogURL:   raw.FacebookDialogURL,
		FacebookAPIVersion:  raw.FacebookAPIVersion,
		StateSecret:         raw.StateSecret,
		AIAPIKey:            raw.AIAPIKey,
		AIBaseURL:           raw.AIBaseURL,
		AIModel:             raw.AIModel,
		RedisAddr:           raw.RedisAddr,
		WorkerCount:         raw.WorkerCount,
		TestPostInterval:    raw.TestPostInterval,
		ExtractContent:      raw.ExtractContent,
		FetchTimeout:        raw.FetchTimeout,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}
}

func (c *Cfg) validate() error {
	if c.DBPath != "" && c.TokenEncryptionKey == "" {
		return errors.New("TOKEN_ENCRYPTION_KEY is required when DB_PATH is set")
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("worker count must be positive, got %d", c.WorkerCount)
	}
	if c.TestPostInterval < 0 {
		return fmt.Errorf("test post interval must be non-negative, got %d", c.TestPostInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %d", c.FetchTimeout)
	}
	return nil
}

func (c *Cfg) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

// Set installs cfg as the global configuration. Intended for tests.
func Set(cfg *Cfg) {
	globalCfg = cfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
