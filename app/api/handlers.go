package api

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feedpost/app/database"
	"github.com/lysyi3m/feedpost/app/tasks"
)

func NewHandler(sites database.SiteRepository, logs database.LogRepository,
	connectService ConnectService, runner tasks.PipelineRunner,
	scheduler tasks.TaskSchedulerInterface, opts Options) *Handler {
	opts.DashboardPath = cmp.Or(opts.DashboardPath, "/dashboard")

	return &Handler{
		sites:     sites,
		logs:      logs,
		connect:   connectService,
		runner:    runner,
		scheduler: scheduler,
		limiter:   newSiteLimiter(opts.TestPostInterval),
		opts:      opts,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   h.opts.Version,
	}

	if sites, err := h.sites.ListSites(c.Request.Context()); err == nil {
		health["sites"] = len(sites)
	}

	c.JSON(http.StatusOK, health)
}

// GetDashboard echoes the flash parameters left by the OAuth redirect together
// with the current sites and activity log.
func (h *Handler) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	sites, err := h.sites.ListSites(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "ListSites", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	logs, err := h.logs.ListLogs(ctx)
	if err != nil {
		slog.Error("Database error", "operation", "ListLogs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	flash := gin.H{}
	for _, key := range []string{"success", "error", "message"} {
		if value := c.Query(key); value != "" {
			flash[key] = value
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"flash": flash,
		"sites": newSiteViews(sites),
		"logs":  newLogViews(logs),
	})
}

func (h *Handler) APIListSites(c *gin.Context) {
	sites, err := h.sites.ListSites(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "ListSites", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sites": newSiteViews(sites),
		"total": len(sites),
	})
}

func (h *Handler) APIGetSite(c *gin.Context) {
	site := h.loadSite(c)
	if site == nil {
		return
	}

	c.JSON(http.StatusOK, newSiteView(*site))
}

func (h *Handler) APICreateSite(c *gin.Context) {
	var req createSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if req.Status != "" && !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": fmt.Sprintf("unknown status %q", req.Status)})
		return
	}

	site, err := h.sites.CreateSite(c.Request.Context(), database.Site{
		ID:         strings.TrimSpace(req.ID),
		Name:       strings.TrimSpace(req.Name),
		URL:        req.URL,
		RSSFeedURL: req.RSSFeedURL,
		Status:     req.Status,
	})
	if errors.Is(err, database.ErrSiteExists) {
		c.JSON(http.StatusConflict, gin.H{"error": "Site already exists"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "CreateSite", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Site created", "site_id", site.ID, "name", site.Name)
	c.JSON(http.StatusCreated, newSiteView(*site))
}

func (h *Handler) APIUpdateSite(c *gin.Context) {
	id := c.Param("id")

	var req updateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	if req.Status != nil && !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": fmt.Sprintf("unknown status %q", *req.Status)})
		return
	}

	update := database.SiteUpdate{
		Name:       req.Name,
		URL:        req.URL,
		RSSFeedURL: req.RSSFeedURL,
		Status:     req.Status,
	}
	if req.Status != nil && *req.Status != database.SiteStatusError {
		noError := ""
		update.ErrorMessage = &noError
	}
	if req.DisconnectFacebook {
		empty := ""
		update.FacebookPageID = &empty
		update.FacebookPageName = &empty
		update.FacebookPageAccessToken = &empty
	}

	site, err := h.sites.UpdateSite(c.Request.Context(), id, update)
	if errors.Is(err, database.ErrSiteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "UpdateSite", "site_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, newSiteView(*site))
}

func (h *Handler) APIDeleteSite(c *gin.Context) {
	id := c.Param("id")

	err := h.sites.DeleteSite(c.Request.Context(), id)
	if errors.Is(err, database.ErrSiteNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "DeleteSite", "site_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	h.limiter.Forget(id)
	slog.Info("Site deleted", "site_id", id)
	c.Status(http.StatusNoContent)
}

// APITestPost runs the pipeline for one site and waits for the result.
func (h *Handler) APITestPost(c *gin.Context) {
	site := h.loadSite(c)
	if site == nil {
		return
	}

	if ok, wait := h.limiter.Allow(site.ID); !ok {
		seconds := int(math.Ceil(wait.Seconds()))
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":   "Too many test posts",
			"message": fmt.Sprintf("Wait %d seconds before posting for this site again", seconds),
		})
		return
	}

	result := h.runner.Run(c.Request.Context(), site.ID)

	response := gin.H{
		"success":  result.Success,
		"message":  result.Message,
		"post_url": result.PostURL,
	}
	if result.Log != nil {
		response["log"] = newLogView(*result.Log)
	}

	c.JSON(http.StatusOK, response)
}

// APITestPostAll queues one pipeline run per registered site.
func (h *Handler) APITestPostAll(c *gin.Context) {
	sites, err := h.sites.ListSites(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "ListSites", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	queued := make([]gin.H, 0, len(sites))
	failed := 0
	for _, site := range sites {
		task := tasks.NewRunPipelineTask(site.ID, h.runner)
		if err := h.scheduler.EnqueueTask(task); err != nil {
			slog.Error("Error enqueueing pipeline task", "site_id", site.ID, "error", err)
			failed++
			continue
		}
		queued = append(queued, gin.H{
			"id":      task.ID,
			"type":    task.Type,
			"site_id": site.ID,
		})
	}

	if failed > 0 && len(queued) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue pipeline tasks",
			"message": fmt.Sprintf("%d tasks could not be queued", failed),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": fmt.Sprintf("Queued %d test posts", len(queued)),
		"tasks":   queued,
		"failed":  failed,
	})
}

func (h *Handler) APIListLogs(c *gin.Context) {
	logs, err := h.logs.ListLogs(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "ListLogs", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  newLogViews(logs),
		"total": len(logs),
	})
}

// loadSite resolves the :id parameter, writing the error response itself when
// the site cannot be returned.
func (h *Handler) loadSite(c *gin.Context) *database.Site {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing site id parameter"})
		return nil
	}

	site, err := h.sites.GetSite(c.Request.Context(), id)
	if err != nil {
		slog.Error("Database error", "operation", "GetSite", "site_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return nil
	}

	if site == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Site not found"})
		return nil
	}

	return site
}
