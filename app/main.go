package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/feedpost/app/ai"
	"github.com/lysyi3m/feedpost/app/api"
	"github.com/lysyi3m/feedpost/app/cfg"
	"github.com/lysyi3m/feedpost/app/connect"
	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/facebook"
	"github.com/lysyi3m/feedpost/app/feed"
	"github.com/lysyi3m/feedpost/app/lock"
	"github.com/lysyi3m/feedpost/app/pipeline"
	"github.com/lysyi3m/feedpost/app/publisher"
	"github.com/lysyi3m/feedpost/app/secrets"
	"github.com/lysyi3m/feedpost/app/seed"
	"github.com/lysyi3m/feedpost/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	level := slog.LevelInfo
	if appCfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting FeedPost server", "version", appCfg.Version)

	sites, logs, closeStore, err := openStore(appCfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if appCfg.SitesFile != "" {
		seedSites, err := seed.Load(appCfg.SitesFile)
		if err != nil {
			slog.Error("Failed to load sites file", "path", appCfg.SitesFile, "error", err)
			os.Exit(1)
		}
		created, err := seed.Apply(context.Background(), sites, seedSites)
		if err != nil {
			slog.Error("Failed to register sites", "error", err)
			os.Exit(1)
		}
		slog.Info("Sites registered", "file", appCfg.SitesFile, "total", len(seedSites), "created", created)
	}

	stateSecret := []byte(appCfg.StateSecret)
	if len(stateSecret) == 0 {
		stateSecret, err = connect.RandomSecret()
		if err != nil {
			slog.Error("Failed to generate state secret", "error", err)
			os.Exit(1)
		}
		slog.Warn("STATE_SECRET not set, OAuth flows will not survive a restart")
	}

	if !appCfg.FacebookConfigured() {
		slog.Warn("Facebook app is not fully configured, posts will be simulated and connect will fail")
	}

	httpClient := &http.Client{Timeout: appCfg.FetchTimeoutDuration()}

	fbClient := facebook.NewClient(facebook.Config{
		AppID:       appCfg.FacebookAppID,
		AppSecret:   appCfg.FacebookAppSecret,
		RedirectURI: appCfg.FacebookRedirectURI,
		GraphURL:    appCfg.FacebookGraphURL,
		DialogURL:   appCfg.FacebookDialogURL,
		APIVersion:  appCfg.FacebookAPIVersion,
		HTTPClient:  httpClient,
	})

	connectService := connect.NewService(
		connect.Config{
			AppID:       appCfg.FacebookAppID,
			AppSecret:   appCfg.FacebookAppSecret,
			RedirectURI: appCfg.FacebookRedirectURI,
		},
		fbClient,
		connect.NewStateCodec(stateSecret),
		sites,
		logs,
	)

	var generator ai.Generator
	if appCfg.AIAPIKey != "" {
		generator = ai.NewOpenAIGenerator(appCfg.AIBaseURL, appCfg.AIAPIKey, appCfg.AIModel)
		slog.Info("Using chat completions for post text", "model", appCfg.AIModel)
	} else {
		generator = ai.NewTemplateGenerator()
		slog.Info("AI_API_KEY not set, using template post text")
	}

	fetcher := feed.NewFetcher(feed.FetcherOptions{
		HTTPClient:     httpClient,
		UserAgent:      appCfg.UserAgent,
		Timeout:        appCfg.FetchTimeoutDuration(),
		ExtractContent: appCfg.ExtractContent,
	})

	pub := publisher.NewPublisher(fbClient, sites, appCfg.FacebookAppID)

	var locker lock.Locker = lock.NewLocalLocker()
	if appCfg.RedisAddr != "" {
		redisLocker, err := lock.NewRedisLocker(appCfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "addr", appCfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisLocker.Close()
		locker = redisLocker
		slog.Info("Using Redis for publish locks", "addr", appCfg.RedisAddr)
	}

	runner := pipeline.New(sites, logs, fetcher, generator, pub, locker)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(appCfg.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()

	handler := api.NewHandler(sites, logs, connectService, runner, scheduler, api.Options{
		DashboardPath:    appCfg.DashboardPath,
		SecureCookies:    appCfg.Production,
		TestPostInterval: time.Duration(appCfg.TestPostInterval) * time.Second,
		Version:          appCfg.Version,
	})
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", appCfg.BaseUrl)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

// openStore returns SQLite-backed repositories when a database path is
// configured and an in-memory store otherwise.
func openStore(appCfg *cfg.Cfg) (database.SiteRepository, database.LogRepository, func(), error) {
	if appCfg.DBPath == "" {
		slog.Warn("DB_PATH not set, sites and logs are kept in memory")
		store := database.NewMemoryStore()
		return store, store, func() {}, nil
	}

	cipher, err := secrets.NewCipher(appCfg.TokenEncryptionKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up token encryption: %w", err)
	}

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return nil, nil, nil, err
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}

	return database.NewSiteRepository(db, cipher), database.NewLogRepository(db), closeDB, nil
}
