package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		// The OAuth callback carries the authorization code in its query string.
		SkipPaths: []string{"/api/auth/facebook/callback"},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)
	r.GET("/dashboard", handler.GetDashboard)

	// Browser-driven OAuth flow, never behind the API key
	r.GET("/api/auth/facebook/connect", handler.FacebookConnect)
	r.GET("/api/auth/facebook/callback", handler.FacebookCallback)

	api := r.Group("/api")
	if apiAccessKey != "" {
		api.Use(authMiddleware(apiAccessKey))
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints are not protected (API_ACCESS_KEY not set)")
	}
	{
		api.GET("/sites", handler.APIListSites)
		api.POST("/sites", handler.APICreateSite)
		api.POST("/sites/test-post", handler.APITestPostAll)
		api.GET("/sites/:id", handler.APIGetSite)
		api.PATCH("/sites/:id", handler.APIUpdateSite)
		api.DELETE("/sites/:id", handler.APIDeleteSite)
		api.POST("/sites/:id/test-post", handler.APITestPost)
		api.GET("/logs", handler.APIListLogs)
	}

	r.GET("/", func(c *gin.Context) {
		auth := ""
		if apiAccessKey != "" {
			auth = " (requires X-API-Key header)"
		}

		endpoints := map[string]string{
			"health":    "/health",
			"dashboard": "/dashboard",
			"connect":   "/api/auth/facebook/connect?siteId=<id>",
			"sites":     "/api/sites" + auth,
			"site":      "/api/sites/<id>" + auth,
			"test_post": "/api/sites/<id>/test-post (POST)" + auth,
			"test_all":  "/api/sites/test-post (POST)" + auth,
			"logs":      "/api/logs" + auth,
		}

		c.JSON(200, gin.H{
			"service":     "FeedPost",
			"version":     handler.opts.Version,
			"description": "Publishes the latest WordPress article of each site to its Facebook Page",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
