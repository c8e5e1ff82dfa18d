// Package http is the local API surface of the daemon. Clients are the
// menu-bar UI, the CLI, and anything else on localhost holding a valid
// session.
package http

import (
	"github.com/gin-gonic/gin"

	"quotevault/internal/auth"
	"quotevault/internal/entitlements"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())

	// CSRF must run before session so that session context is preserved.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, authManager(cfg)))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Journal endpoints
	if cfg.Service != nil {
		quotesController := NewQuotesController(cfg.Service, cfg.Quotes)
		router.GET("/api/quotes", quotesController.List)
		router.POST("/api/quotes", quotesController.Add)
		router.DELETE("/api/quotes/:id", quotesController.Delete)
		router.POST("/api/quotes/:id/promote", quotesController.Promote)
		router.GET("/api/quotes/current", quotesController.Current)

		favoritesController := NewFavoritesController(cfg.Service)
		router.POST("/api/favorites", favoritesController.Add)
		router.DELETE("/api/favorites/:id", favoritesController.Remove)
	}

	// Premium endpoints, entitlement-gated when a billing client is wired
	premium := router.Group("/api")
	if cfg.Entitlements != nil {
		premium.Use(entitlements.RequireEntitlement(cfg.Entitlements, cfg.Entitlement))
	}
	if cfg.Discover != nil {
		discoverController := NewDiscoverController(cfg.Discover)
		premium.GET("/discover", discoverController.State)
		premium.GET("/discover/:category", discoverController.Fetch)
	}
	if cfg.Videos != nil {
		videosController := NewVideosController(cfg.Videos)
		premium.GET("/videos", videosController.Feed)
	}

	// Sync endpoints. Status and settings stay usable while signed out;
	// manual runs need a session.
	if cfg.SettingsStore != nil {
		syncController := NewSyncController(cfg.SettingsStore, cfg.SyncScheduler)
		router.GET("/api/sync/status", syncController.Status)
		router.GET("/api/sync/settings", syncController.Settings)
		router.PUT("/api/sync/settings", syncController.UpdateSettings)
		router.DELETE("/api/sync/settings", syncController.ResetSettings)
		if cfg.AuthMiddleware != nil {
			router.POST("/api/sync/run", cfg.AuthMiddleware.RequireSignIn(), syncController.Run)
		} else {
			router.POST("/api/sync/run", syncController.Run)
		}
	}

	// Widget surface
	if cfg.Widget != nil {
		widgetController := NewWidgetController(cfg.Widget, cfg.SettingsStore, cfg.WidgetScheduler)
		router.GET("/api/widget/snapshot", widgetController.Snapshot)
		if cfg.SettingsStore != nil {
			router.GET("/api/widget/schedule", widgetController.Schedule)
			router.PUT("/api/widget/schedule", widgetController.UpdateSchedule)
			router.DELETE("/api/widget/schedule", widgetController.ResetSchedule)
		}
	}

	return router
}

// authManager unwraps the manager behind the auth controller for the
// CSRF bearer-token bypass. Nil when auth is not wired.
func authManager(cfg RouterConfig) *auth.Manager {
	if cfg.AuthMiddleware == nil {
		return nil
	}
	return cfg.AuthMiddleware.Manager()
}
