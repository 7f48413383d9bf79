package connect

import (
	"net/url"
)

// Redirect codes carried back to the dashboard.
const (
	CodeMissingSiteID  = "missing_site_id"
	CodeConfigMissing  = "facebook_config_missing"
	CodeProviderError  = "facebook_auth_error_from_provider"
	CodeMissingParams  = "facebook_auth_failed_missing_params"
	CodeInvalidState   = "facebook_auth_failed_invalid_state_format"
	CodeCSRFMismatch   = "facebook_auth_failed_csrf_mismatch"
	CodeServerConfig   = "server_config_incomplete_for_facebook_token_exchange"
	CodeTokenExchange  = "fb_user_token_exchange_failed"
	CodePagesFetch     = "fb_pages_fetch_failed"
	CodeNoPages        = "no_connectable_facebook_pages_found"
	CodeSiteUpdate     = "site_update_failed_after_fb_auth_in_db"
	CodeCallbackFailed = "facebook_callback_exception"
	CodePageConnected  = "facebook_page_connected"
)

// Outcome is the terminal state of a connect or callback request.
type Outcome struct {
	Success  bool
	Code     string
	Message  string
	SiteID   string
	PageName string
}

func failure(code, message string) Outcome {
	return Outcome{Code: code, Message: message}
}

// Query encodes the outcome as dashboard flash parameters.
func (o Outcome) Query() url.Values {
	values := url.Values{}
	if o.Success {
		values.Set("success", o.Code)
	} else {
		values.Set("error", o.Code)
	}
	if o.Message != "" {
		values.Set("message", o.Message)
	}
	return values
}
