package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feedpost/app/connect"
)

const (
	csrfCookieName   = "facebook_csrf_token"
	csrfCookiePath   = "/api/auth/facebook"
	csrfCookieMaxAge = 600
)

// FacebookConnect always answers with a redirect: to the OAuth dialog on
// success, to the dashboard otherwise.
func (h *Handler) FacebookConnect(c *gin.Context) {
	begin, failure := h.connect.Begin(c.Query("siteId"))
	if failure != nil {
		h.redirectToDashboard(c, *failure)
		return
	}

	h.setCSRFCookie(c, begin.CSRFToken, csrfCookieMaxAge)
	c.Redirect(http.StatusFound, begin.AuthURL)
}

// FacebookCallback finishes the OAuth flow. The CSRF cookie is single use and
// is cleared whatever the outcome.
func (h *Handler) FacebookCallback(c *gin.Context) {
	outcome := h.completeCallback(c)

	h.setCSRFCookie(c, "", -1)
	h.redirectToDashboard(c, outcome)
}

func (h *Handler) completeCallback(c *gin.Context) (outcome connect.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Facebook callback handler panicked", "panic", r)
			outcome = connect.Outcome{
				Code:    connect.CodeCallbackFailed,
				Message: "An unexpected error occurred while connecting Facebook.",
			}
		}
	}()

	var params connect.CallbackParams
	if err := c.ShouldBindQuery(&params); err != nil {
		slog.Warn("Malformed Facebook callback", "error", err)
		return connect.Outcome{
			Code:    connect.CodeMissingParams,
			Message: "The Facebook callback is missing the code or state parameter.",
		}
	}

	storedCSRF, err := c.Cookie(csrfCookieName)
	if err != nil {
		storedCSRF = ""
	}

	return h.connect.Complete(c.Request.Context(), params, storedCSRF)
}

func (h *Handler) setCSRFCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(csrfCookieName, value, maxAge, csrfCookiePath, "", h.opts.SecureCookies, true)
}

func (h *Handler) redirectToDashboard(c *gin.Context, outcome connect.Outcome) {
	separator := "?"
	if strings.Contains(h.opts.DashboardPath, "?") {
		separator = "&"
	}
	c.Redirect(http.StatusFound, h.opts.DashboardPath+separator+outcome.Query().Encode())
}
