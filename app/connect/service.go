package connect

import (
	"cmp"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/facebook"
)

type OAuthClient interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	ListPages(ctx context.Context, userToken string) ([]facebook.Page, error)
}

type Config struct {
	AppID       string
	AppSecret   string
	RedirectURI string
}

type Service struct {
	cfg    Config
	client OAuthClient
	states *StateCodec
	sites  database.SiteRepository
	logs   database.LogRepository
}

func NewService(cfg Config, client OAuthClient, states *StateCodec, sites database.SiteRepository, logs database.LogRepository) *Service {
	return &Service{
		cfg:    cfg,
		client: client,
		states: states,
		sites:  sites,
		logs:   logs,
	}
}

type BeginResult struct {
	AuthURL   string
	CSRFToken string
}

// Begin prepares the redirect to the OAuth dialog. The returned CSRF token must
// be stored client-side and handed back to Complete.
func (s *Service) Begin(siteID string) (*BeginResult, *Outcome) {
	siteID = strings.TrimSpace(siteID)
	if siteID == "" {
		out := failure(CodeMissingSiteID, "A site id is required to connect a Facebook Page.")
		return nil, &out
	}

	if s.cfg.AppID == "" || s.cfg.RedirectURI == "" {
		slog.Error("Facebook connect requested without app configuration", "site_id", siteID)
		out := failure(CodeConfigMissing, "Facebook integration is not configured on the server.")
		return nil, &out
	}

	csrf, err := newCSRFToken()
	if err != nil {
		slog.Error("Failed to generate CSRF token", "error", err)
		out := failure(CodeCallbackFailed, "Could not start the Facebook connection. Please try again.")
		return nil, &out
	}

	state, err := s.states.Encode(State{SiteID: siteID, CSRF: csrf})
	if err != nil {
		slog.Error("Failed to encode OAuth state", "error", err)
		out := failure(CodeCallbackFailed, "Could not start the Facebook connection. Please try again.")
		return nil, &out
	}

	slog.Info("Starting Facebook connect", "site_id", siteID)

	return &BeginResult{
		AuthURL:   s.client.AuthCodeURL(state),
		CSRFToken: csrf,
	}, nil
}

type CallbackParams struct {
	Code             string `form:"code"`
	State            string `form:"state"`
	Error            string `form:"error"`
	ErrorReason      string `form:"error_reason"`
	ErrorDescription string `form:"error_description"`
}

// Complete validates the callback and stores the selected page credentials.
// Every failure, including a panic, becomes an Outcome.
func (s *Service) Complete(ctx context.Context, params CallbackParams, storedCSRF string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Facebook callback panicked", "panic", r)
			out = failure(CodeCallbackFailed, "An unexpected error occurred while connecting Facebook.")
		}
	}()

	if params.Error != "" {
		reason := cmp.Or(params.ErrorDescription, params.ErrorReason, params.Error)
		slog.Warn("Facebook reported an authorization error", "error", params.Error, "reason", params.ErrorReason)
		return failure(CodeProviderError, "Facebook authorization failed: "+reason)
	}

	if params.Code == "" || params.State == "" {
		return failure(CodeMissingParams, "The Facebook callback is missing the code or state parameter.")
	}

	state, err := s.states.Decode(params.State)
	if err != nil {
		slog.Warn("Invalid OAuth state", "error", err)
		return failure(CodeInvalidState, "The OAuth state is malformed or has expired. Please start the connection again.")
	}

	if storedCSRF == "" || subtle.ConstantTimeCompare([]byte(storedCSRF), []byte(state.CSRF)) != 1 {
		slog.Warn("OAuth CSRF mismatch", "site_id", state.SiteID, "cookie_present", storedCSRF != "")
		return failure(CodeCSRFMismatch, "Security check failed. Please start the connection again.")
	}

	if s.cfg.AppID == "" || s.cfg.AppSecret == "" || s.cfg.RedirectURI == "" {
		slog.Error("Facebook token exchange is not configured", "site_id", state.SiteID)
		return failure(CodeServerConfig, "The server is missing Facebook app credentials.")
	}

	userToken, err := s.client.ExchangeCode(ctx, params.Code)
	if err != nil {
		slog.Error("Facebook token exchange failed", "site_id", state.SiteID, "error", err)
		return s.fail(ctx, state.SiteID, CodeTokenExchange, "Could not obtain a Facebook access token: "+facebook.Detail(err))
	}

	pages, err := s.client.ListPages(ctx, userToken)
	if err != nil {
		slog.Error("Failed to fetch Facebook pages", "site_id", state.SiteID, "error", err)
		return s.fail(ctx, state.SiteID, CodePagesFetch, "Could not fetch your Facebook Pages: "+facebook.Detail(err))
	}

	page, err := facebook.SelectPage(pages)
	if err != nil {
		slog.Warn("No connectable Facebook page", "site_id", state.SiteID, "pages_found", len(pages))
		return s.fail(ctx, state.SiteID, CodeNoPages, err.Error())
	}

	status := database.SiteStatusMonitoring
	noError := ""
	site, err := s.sites.UpdateSite(ctx, state.SiteID, database.SiteUpdate{
		FacebookPageID:          &page.ID,
		FacebookPageName:        &page.Name,
		FacebookPageAccessToken: &page.AccessToken,
		Status:                  &status,
		ErrorMessage:            &noError,
	})
	if errors.Is(err, database.ErrSiteNotFound) {
		slog.Error("Site disappeared during Facebook connect", "site_id", state.SiteID)
		return failure(CodeSiteUpdate, "The site to connect no longer exists.")
	}
	if err != nil {
		slog.Error("Database error", "operation", "UpdateSite", "site_id", state.SiteID, "error", err)
		return failure(CodeCallbackFailed, "An unexpected error occurred while saving the Facebook Page.")
	}

	slog.Info("Facebook page connected",
		"site_id", site.ID,
		"page_id", page.ID,
		"page_name", page.Name,
		"token_length", len(page.AccessToken))

	s.appendLog(ctx, database.ActivityLog{
		SiteID:   site.ID,
		SiteName: site.Name,
		Status:   database.LogStatusInfo,
		Message:  fmt.Sprintf("Connected Facebook Page %q.", page.Name),
	})

	return Outcome{
		Success:  true,
		Code:     CodePageConnected,
		Message:  fmt.Sprintf("Facebook Page %q connected.", page.Name),
		SiteID:   site.ID,
		PageName: page.Name,
	}
}

// fail records an upstream failure against the site, when it exists, and returns the outcome.
func (s *Service) fail(ctx context.Context, siteID, code, message string) Outcome {
	out := failure(code, message)
	out.SiteID = siteID

	site, err := s.sites.GetSite(ctx, siteID)
	if err != nil || site == nil {
		return out
	}

	s.appendLog(ctx, database.ActivityLog{
		SiteID:   site.ID,
		SiteName: site.Name,
		Status:   database.LogStatusError,
		Message:  message,
	})
	return out
}

func (s *Service) appendLog(ctx context.Context, entry database.ActivityLog) {
	if _, err := s.logs.AppendLog(ctx, entry); err != nil {
		slog.Error("Database error", "operation", "AppendLog", "site_id", entry.SiteID, "error", err)
	}
}

func newCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
